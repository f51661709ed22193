package copywriter

import (
	"bytes"
	_ "embed"
	"text/template"
)

//go:embed prompt.tmpl
var promptTemplate string

type promptData struct {
	ProductName string
}

// renderPrompt executes the embedded prompt template for one product.
func renderPrompt(productName string) (string, error) {
	tmpl, err := template.New("prompt").Parse(promptTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptData{ProductName: productName}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
