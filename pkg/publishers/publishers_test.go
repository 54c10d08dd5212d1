package publishers

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "publishers.yaml")
	content := `
publishers:
  - id: hook
    type: HTTP
    http:
      url: " https://hooks.example.com/counts "
      headers:
        Authorization: Bearer x
        X-Empty: ""
  - id: queue
    type: sqs
    enabled: false
    sqs:
      uri: https://sqs.eu-west-1.amazonaws.com/123/counts
      region: eu-west-1
  - id: topic
    type: sns
    sns:
      topic_arn: arn:aws:sns:eu-west-1:123:counts
      region: eu-west-1
  - id: gcp
    type: pubsub
    pubsub:
      project_id: proj
      topic: counts
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write publishers file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 4 {
		t.Fatalf("expected 4 publishers, got %d", len(reg.All()))
	}
	if len(reg.Enabled()) != 3 {
		t.Fatalf("expected 3 enabled publishers, got %d", len(reg.Enabled()))
	}

	hook, ok := reg.ByID("hook")
	if !ok {
		t.Fatal("hook not loaded")
	}
	if hook.Type != TypeHTTP || hook.HTTP.URL != "https://hooks.example.com/counts" {
		t.Fatalf("hook not sanitized: %+v", hook.HTTP)
	}
	if hook.HTTP.Method != "POST" || hook.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("hook defaults not applied: %+v", hook.HTTP)
	}
	if _, ok := hook.HTTP.Headers["X-Empty"]; ok {
		t.Fatal("empty header should be dropped")
	}
}

func TestLoadRegistryRejectsIncompleteConfigs(t *testing.T) {
	cases := map[string]string{
		"sns without arn":  "publishers:\n  - {id: t, type: sns, sns: {region: eu-west-1}}\n",
		"pubsub no topic":  "publishers:\n  - {id: g, type: pubsub, pubsub: {project_id: p}}\n",
		"http without url": "publishers:\n  - {id: h, type: http, http: {}}\n",
		"unknown type":     "publishers:\n  - {id: k, type: kafka}\n",
		"duplicate":        "publishers:\n  - {id: h, type: http, http: {url: 'https://a.example'}}\n  - {id: h, type: http, http: {url: 'https://b.example'}}\n",
		"bad method":       "publishers:\n  - {id: h, type: http, http: {url: 'https://a.example', method: delete}}\n",
		"sns bad arn":      "publishers:\n  - {id: t, type: sns, sns: {topic_arn: counts, region: eu-west-1}}\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "publishers.yaml")
			if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := LoadRegistry(file); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadRegistryEmpty(t *testing.T) {
	file := filepath.Join(t.TempDir(), "publishers.json")
	if err := os.WriteFile(file, []byte(`{"publishers":[]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadRegistry(file); !errors.Is(err, ErrNoPublishers) {
		t.Fatalf("expected ErrNoPublishers, got %v", err)
	}
}
