package email

import (
	"bytes"
	"fmt"
	"html/template"
)

const layout = `
{{define "layout"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            background-color: #4F46E5;
            color: white;
            padding: 20px;
            text-align: center;
            border-radius: 5px 5px 0 0;
        }
        .content {
            background-color: #f9f9f9;
            padding: 30px;
            border-radius: 0 0 5px 5px;
        }
        .button {
            display: inline-block;
            background-color: #4F46E5;
            color: white !important;
            padding: 12px 30px;
            text-decoration: none;
            border-radius: 5px;
            margin: 20px 0;
        }
        .code {
            font-size: 28px;
            letter-spacing: 6px;
            font-weight: bold;
        }
        .footer {
            margin-top: 30px;
            font-size: 12px;
            color: #666;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Product}}</h1>
    </div>
    <div class="content">
        {{template "content" .}}
    </div>
    <div class="footer">
        {{if .Expiry}}<p>This {{.ExpiryNoun}} expires in {{.Expiry}}.</p>{{end}}
        <p>&copy; {{.Product}}</p>
    </div>
</body>
</html>
{{end}}`

const verificationContent = `{{define "content"}}
        <h2>Verify your email address</h2>
        <p>Hi {{.Name}},</p>
        <p>Thank you for signing up! Click the button below to verify your email address and activate your account.</p>

        <a href="{{.Link}}" class="button" style="color: white !important;">Verify Email Address</a>

        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #4F46E5;">{{.Link}}</p>

        <p style="margin-top: 30px;">If you didn't create an account, you can safely ignore this email.</p>
{{end}}`

const otpContent = `{{define "content"}}
        <h2>Your sign-in code</h2>
        <p>Hello {{.Name}},</p>
        <p>Your OTP code is:</p>
        <p class="code">{{.Code}}</p>

        <p style="margin-top: 30px;">If you didn't try to sign in, change your password.</p>
{{end}}`

const resetContent = `{{define "content"}}
        <h2>Reset your password</h2>
        <p>You requested to reset your password. Click the button below to create a new password.</p>

        <a href="{{.Link}}" class="button" style="color: white !important;">Reset Password</a>

        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #4F46E5;">{{.Link}}</p>

        <p style="margin-top: 30px;">If you didn't request a password reset, you can safely ignore this email. Your password will remain unchanged.</p>
{{end}}`

var (
	verificationTmpl = mustParse("verification", verificationContent)
	otpTmpl          = mustParse("otp", otpContent)
	resetTmpl        = mustParse("reset", resetContent)
)

func mustParse(name, content string) *template.Template {
	return template.Must(template.Must(template.New(name).Parse(layout)).Parse(content))
}

type templateData struct {
	Product    string
	Name       string
	Link       string
	Code       string
	Expiry     string
	ExpiryNoun string
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", t.Name(), err)
	}
	return buf.String(), nil
}
