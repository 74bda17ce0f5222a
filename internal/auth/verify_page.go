package auth

import (
	"html/template"
	"net/http"

	"github.com/redmonkez12/advising-auth/internal/logging"
)

var verifyPageTmpl = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 40px auto;
            padding: 20px;
            text-align: center;
        }
        a {
            display: inline-block;
            background-color: #4F46E5;
            color: white;
            padding: 12px 30px;
            text-decoration: none;
            border-radius: 5px;
            margin: 20px 0;
        }
    </style>
</head>
<body{{if .Code}} data-code="{{.Code}}"{{end}}>
    <h2>{{.Title}}</h2>
    <p>{{.Message}}</p>
    {{if .LinkURL}}<a href="{{.LinkURL}}">{{.LinkLabel}}</a>{{end}}
</body>
</html>
`))

type verifyPage struct {
	Title     string
	Message   string
	LinkURL   string
	LinkLabel string
	// Code is the machine-readable error code, exposed as data-code on failures.
	Code string
}

func renderVerifyPage(w http.ResponseWriter, r *http.Request, status int, page verifyPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := verifyPageTmpl.Execute(w, page); err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to render verify page", "error", err)
	}
}
