package i18n

import "errors"

var (
	ErrNoCatalogs          = errors.New("i18n: no catalogs found")
	ErrFailedToReadCatalog = errors.New("i18n: failed to read catalog")
	ErrFailedToParseYAML   = errors.New("i18n: failed to parse YAML catalog")
	ErrInvalidLanguageTag  = errors.New("i18n: invalid language tag")
)
