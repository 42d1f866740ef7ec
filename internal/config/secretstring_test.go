package config

import (
	"encoding/json"
	"testing"

	yaml "gopkg.in/yaml.v3"
)

func TestSecretString(t *testing.T) {
	type holder struct {
		Password SecretString `json:"password" yaml:"password"`
	}

	data, err := json.Marshal(holder{Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"password":"\u003csecret\u003e"}` {
		t.Errorf("unexpected json: %s", data)
	}
	data, err = json.Marshal(holder{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"password":null}` {
		t.Errorf("unexpected json: %s", data)
	}

	data, err = yaml.Marshal(holder{Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "password: <secret>\n" {
		t.Errorf("unexpected yaml: %q", data)
	}

	var h holder
	if err := yaml.Unmarshal([]byte("password: real\n"), &h); err != nil {
		t.Fatal(err)
	}
	if h.Password.Reveal() != "real" {
		t.Errorf("unexpected value: %q", h.Password)
	}
}
