// Package i18n expands bracketed language tokens such as "[[sso-vk:vk]]".
//
// Catalogs are YAML files named after a language tag (en.yaml, ru.yaml),
// each holding namespaces of keys:
//
//	sso-vk:
//	  vk: VK
//	  deauth.confirm: "Disconnect your %1 account?"
//
// Tokens may carry arguments that replace %1, %2 and so on:
// "[[sso-vk:deauth.confirm, VK]]". Unknown tokens are left as they are.
// Arguments built from outside values, such as URLs, go through EscapeArg.
//
// Match negotiates the best catalog for an Accept-Language header using
// golang.org/x/text/language, and Middleware stores the result in the
// request context for GetLocale.
package i18n
