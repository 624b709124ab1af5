package user

import (
	"bytes"
	"html/template"
	"strings"
)

var inviteTemplate = template.Must(template.New("invite").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <p>Hello {{.Name}},</p>
  <p>You have been invited to the distributor portal.</p>
  <p>Sign in at <a href="{{.Link}}">{{.Link}}</a> with your email address{{if .Password}} and the temporary password <strong>{{.Password}}</strong>{{end}}.</p>
  <p>Please change your password after signing in.</p>
</body>
</html>`))

func renderInvite(name, password, portalURL string) (string, error) {
	var buf bytes.Buffer
	err := inviteTemplate.Execute(&buf, struct {
		Name     string
		Password string
		Link     string
	}{
		Name:     name,
		Password: password,
		Link:     strings.TrimRight(portalURL, "/") + "/login",
	})
	return buf.String(), err
}
