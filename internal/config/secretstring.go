package config

// SecretStringValue replaces secrets in every serialized form.
const SecretStringValue = "<secret>"

// SecretString holds values which must never show up in logs or dumps, the
// sqdoc password for one.
type SecretString string

func (s SecretString) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return []byte("\"" + SecretStringValue + "\""), nil
}

func (s SecretString) MarshalYAML() (any, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return SecretStringValue, nil
}

// Reveal returns the actual value.
func (s SecretString) Reveal() string {
	return string(s)
}
