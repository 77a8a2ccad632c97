package sso

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/ssovk/pkg/i18n"
	vksso "github.com/dmitrymomot/ssovk/pkg/sso"
)

type adminPageData struct {
	Action      string
	ClientID    string
	HasSecret   bool
	AutoConfirm bool
	CallbackURL string
	Saved       bool
}

const vkAppsURL = "https://vk.com/apps?act=manage"

func deauthPage(t func(string) string, action, cancelURL string) templ.Component {
	service := i18n.EscapeArg(t(vksso.Label))
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%[1]s</title></head>
<body>
<div class="deauth">
<h2>%[1]s</h2>
<p>%[2]s</p>
<form method="post" action="%[3]s">
<button type="submit" class="btn btn-danger">%[4]s</button>
<a href="%[5]s" class="btn btn-link">%[6]s</a>
</form>
</div>
</body>
</html>
`,
			templ.EscapeString(t("[[sso-vk:deauth.title, "+service+"]]")),
			templ.EscapeString(t("[[sso-vk:deauth.explanation, "+service+"]]")),
			templ.EscapeString(action),
			templ.EscapeString(t("[[sso-vk:deauth.confirm]]")),
			templ.EscapeString(cancelURL),
			templ.EscapeString(t("[[sso-vk:deauth.cancel]]")),
		)
		return err
	})
}

func adminPage(t func(string) string, data adminPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		saved := ""
		if data.Saved {
			saved = `<div class="alert alert-success">` + templ.EscapeString(t("[[sso-vk:admin.saved]]")) + `</div>`
		}
		secretHelp := ""
		if data.HasSecret {
			secretHelp = `<small class="form-text">` + templ.EscapeString(t("[[sso-vk:admin.secret-help]]")) + `</small>`
		}
		checked := ""
		if data.AutoConfirm {
			checked = " checked"
		}

		_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%[1]s</title></head>
<body>
<div class="acp-page-container">
<h2><i class="fa %[2]s"></i> %[1]s</h2>
%[3]s
<p>%[4]s</p>
<form class="sso-vkontakte-settings" method="post" action="%[5]s">
<label for="id">%[6]s</label>
<input type="text" id="id" name="id" value="%[7]s">
<label for="secret">%[8]s</label>
<input type="password" id="secret" name="secret" value="" autocomplete="off">
%[9]s
<label><input type="checkbox" name="autoconfirm"%[10]s> %[11]s</label>
<button type="submit" class="btn btn-primary">%[12]s</button>
</form>
</div>
</body>
</html>
`,
			templ.EscapeString(t("[[sso-vk:admin.title]]")),
			templ.EscapeString(vksso.AdminIcon),
			saved,
			templ.EscapeString(t("[[sso-vk:admin.instructions, "+i18n.EscapeArg(vkAppsURL)+", "+i18n.EscapeArg(data.CallbackURL)+"]]")),
			templ.EscapeString(data.Action),
			templ.EscapeString(t("[[sso-vk:admin.client-id]]")),
			templ.EscapeString(data.ClientID),
			templ.EscapeString(t("[[sso-vk:admin.secret]]")),
			secretHelp,
			checked,
			templ.EscapeString(t("[[sso-vk:admin.autoconfirm]]")),
			templ.EscapeString(t("[[sso-vk:admin.save]]")),
		)
		return err
	})
}
