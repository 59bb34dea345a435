package services

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

// Template replaces the payload with the rendering of a text/template. The
// template sees .ID, .Payload (as a string), .Metadata and .Env, and may call
// now and rand.
type Template struct {
	tmpl *template.Template
}

func NewTemplate(text string) (*Template, error) {
	tmpl, err := template.New("payload").Option("missingkey=zero").Funcs(funcs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	return &Template{tmpl: tmpl}, nil
}

func (s *Template) Apply(_ context.Context, msg *models.Message) error {
	var buf bytes.Buffer

	err := s.tmpl.Execute(&buf, map[string]any{
		"ID":       msg.ID,
		"Payload":  msg.Content(),
		"Metadata": msg.Metadata,
		"Env":      envVars(),
	})
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	msg.Payload = buf.Bytes()

	return nil
}

var funcs = template.FuncMap{
	"now": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"rand": func(n int) int {
		if n <= 0 {
			return 0
		}

		return rand.IntN(n)
	},
}

func envVars() map[string]string {
	env := make(map[string]string)

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	return env
}

var _ protocol.Service = (*Template)(nil)
