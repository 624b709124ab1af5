package notification

import (
	"bytes"
	"distributor-portal/internal/domain"
	"fmt"
	"html/template"
	"strings"
)

var bodyTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <p>Hello {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
  <p>{{.Lead}}</p>
  <h2 style="margin-bottom: 4px;">{{.Title}}</h2>
  {{if .Version}}<p style="margin-top: 0;">Version {{.Version}}</p>{{end}}
  {{if .Summary}}<p>{{.Summary}}</p>{{end}}
  <p><a href="{{.Link}}">Open in the distributor portal</a></p>
</body>
</html>`))

type bodyData struct {
	Name    string
	Lead    string
	Title   string
	Version string
	Summary string
	Link    string
}

var leads = map[domain.ContentKind]string{
	domain.KindTraining:      "New training material is available to your team.",
	domain.KindMarketing:     "A new marketing asset has been shared with you.",
	domain.KindDocumentation: "Documentation has been published for your account.",
	domain.KindAnnouncement:  "There is a new announcement for distributors.",
	domain.KindRelease:       "A new software release is available.",
}

func subject(kind domain.ContentKind, item domain.Shareable) string {
	if rel, ok := item.(domain.SoftwareRelease); ok {
		return fmt.Sprintf("New software release: %s %s", rel.Title, rel.Version)
	}
	label := strings.ReplaceAll(string(kind), "_", " ")
	return fmt.Sprintf("New %s: %s", label, item.ContentTitle())
}

func render(kind domain.ContentKind, item domain.Shareable, rc Recipient, portalURL string) (string, error) {
	data := bodyData{
		Name:  rc.Name,
		Lead:  leads[kind],
		Title: item.ContentTitle(),
		Link:  fmt.Sprintf("%s/content/%s/%d", strings.TrimRight(portalURL, "/"), kind, item.ContentID()),
	}
	switch v := item.(type) {
	case domain.SoftwareRelease:
		data.Version = v.Version
		data.Summary = v.ReleaseNotes
	case domain.Announcement:
		data.Summary = v.Body
	default:
		data.Summary = description(item)
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func description(item domain.Shareable) string {
	switch v := item.(type) {
	case domain.TrainingMaterial:
		return v.Description
	case domain.MarketingAsset:
		return v.Description
	case domain.Documentation:
		return v.Description
	}
	return ""
}
