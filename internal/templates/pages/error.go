// Package pages holds the few HTML pages the scheduler serves. Everything
// else is JSON.
package pages

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

// ErrorPage renders a minimal standalone error page for browser requests.
func ErrorPage(code int, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := fmt.Sprintf("%d %s", code, http.StatusText(code))
		_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%[1]s</title>
<style>body{font-family:system-ui,sans-serif;max-width:32rem;margin:4rem auto;padding:0 1rem;color:#222}h1{font-size:1.5rem}a{color:#5a3ec8}</style>
</head>
<body>
<h1>%[1]s</h1>
<p>%[2]s</p>
<p><a href="/">Back to the scheduler</a></p>
</body>
</html>
`, templ.EscapeString(title), templ.EscapeString(message))
		return err
	})
}
