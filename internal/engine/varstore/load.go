package varstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bigrogerio/daedalus/internal/core/errors"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads a variable export. The format follows the extension: .json (the
// shape `airflow variables export` writes), .yaml/.yml or .toml. Top-level
// values that are not strings are kept as their JSON encoding, which is what
// Variable.get returns for them without deserialize_json.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeFilesystem, "read variable store"), errors.CtxPath, path)
	}

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	values, err := decode(format, data)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return New(values), nil
}

func decode(format string, data []byte) (map[string]string, error) {
	raw := make(map[string]interface{})
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, "decode json variable store")
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, "decode yaml variable store")
		}
	case "toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, "decode toml variable store")
		}
	default:
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("unsupported variable store format %q", format))
	}

	out := make(map[string]string, len(raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s, err := stringify(raw[k])
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "encode variable value"), errors.CtxKey, k)
		}
		out[k] = s
	}
	return out, nil
}

func stringify(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case nil:
		return "null", nil
	case json.Number:
		return t.String(), nil
	}
	data, err := json.Marshal(normalize(v))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// normalize converts map[interface{}]interface{} nodes, which encoding/json
// rejects, into map[string]interface{}.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case map[string]interface{}:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case []interface{}:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	}
	return v
}
