package core

import (
	"net/mail"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessage_Render(t *testing.T) {
	fsys := fstest.MapFS{
		"email/_base.txt":       {Data: []byte(`{{template "content" .}} - {{.AppName}}`)},
		"email/_base.gohtml":    {Data: []byte(`<p>{{template "content" .}}</p>`)},
		"email/hello.txt":       {Data: []byte(`{{define "content"}}Hello {{.Data.Name}}{{end}}`)},
		"email/hello.gohtml":    {Data: []byte(`{{define "content"}}Hello <b>{{.Data.Name}}</b>{{end}}`)},
		"email/readme.md":       {Data: []byte(`ignored`)},
		"email/_partial.gohtml": {Data: []byte(`ignored`)},
	}
	require.NoError(t, ParseEmailTemplates(fsys, "email", true))

	to := []mail.Address{{Name: "Admin", Address: "admin@test.cd"}}
	data := struct{ Name string }{Name: "<Bob>"}

	tests := []struct {
		name     string
		msg      EmailMessage
		wantText string
		wantHTML string
		wantErr  bool
	}{
		{name: "plain body", msg: EmailMessage{To: to, BodyStr: "hi"}, wantText: "hi"},
		{
			name:     "templated",
			msg:      EmailMessage{To: to, TemplateName: "hello", TemplateData: data},
			wantText: "Hello <Bob> - CEMS",
			wantHTML: "<p>Hello <b>&lt;Bob&gt;</b></p>",
		},
		{name: "unknown template", msg: EmailMessage{To: to, TemplateName: "lol"}, wantErr: true},
		{name: "missing key", msg: EmailMessage{To: to, TemplateName: "hello", TemplateData: map[string]string{}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			err := msg.Render("CEMS")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, msg.TextContent)
			assert.Equal(t, tt.wantHTML, msg.HTMLContent)
			assert.True(t, msg.HasRecipients())
			assert.True(t, msg.HasContent())
		})
	}
}
