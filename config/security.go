package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/c360/actmeter/errors"
)

// Limits on configuration input. A meter config is a few dozen keys, so
// anything near these bounds is not a config file.
const (
	maxConfigSize  = 1 << 20
	maxConfigDepth = 16
	maxYAMLNodes   = 10000
	maxPathLen     = 4096
	maxEnvValueLen = 4096
	maxPlayerName  = 64
)

// validateConfigPath rejects empty or oversized paths, relative paths that
// climb out of the working directory and extensions the loader cannot
// decode.
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("empty config path")
	}
	if len(path) > maxPathLen {
		return fmt.Errorf("path too long: %d > %d", len(path), maxPathLen)
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("cannot get working directory: %w", err)
		}
		rel, err := filepath.Rel(cwd, filepath.Join(cwd, path))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("path traversal not allowed: %s resolves outside working directory", path)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return nil
	default:
		return fmt.Errorf("only JSON or YAML config files allowed: %s", path)
	}
}

// readConfigFile reads a regular file of bounded size.
func readConfigFile(path string) ([]byte, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes > %d", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}
	return data, nil
}

// checkJSONShape walks the token stream and bounds nesting depth.
func checkJSONShape(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		delim, ok := tok.(json.Delim)
		if !ok {
			continue
		}
		switch delim {
		case '{', '[':
			depth++
			if depth > maxConfigDepth {
				return fmt.Errorf("nesting too deep: more than %d levels", maxConfigDepth)
			}
		default:
			depth--
		}
	}
}

// checkYAMLShape parses data into a node tree and bounds its depth and size.
// Aliases are rejected outright: the config has no use for them and they
// are how small documents expand into huge ones.
func checkYAMLShape(data []byte) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return err
	}

	nodes := 0
	var walk func(n *yaml.Node, depth int) error
	walk = func(n *yaml.Node, depth int) error {
		nodes++
		if nodes > maxYAMLNodes {
			return fmt.Errorf("document too large: more than %d nodes", maxYAMLNodes)
		}
		if n.Kind == yaml.AliasNode {
			return fmt.Errorf("line %d: aliases are not allowed", n.Line)
		}
		if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
			depth++
			if depth > maxConfigDepth {
				return fmt.Errorf("line %d: nesting too deep: more than %d levels", n.Line, maxConfigDepth)
			}
		}
		for _, child := range n.Content {
			if err := walk(child, depth); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(&root, 0)
}

// envCheck validates an environment value before it replaces a field.
type envCheck func(value string) error

func checkTransport(v string) error {
	switch v {
	case TransportWebSocket, TransportIPC:
		return nil
	default:
		return fmt.Errorf("unknown transport %q", v)
	}
}

func checkURL(schemes ...string) envCheck {
	return func(v string) error {
		u, err := url.Parse(v)
		if err != nil {
			return err
		}
		for _, s := range schemes {
			if u.Scheme == s && u.Host != "" {
				return nil
			}
		}
		return fmt.Errorf("want a %s url with a host", strings.Join(schemes, " or "))
	}
}

func checkURLList(schemes ...string) envCheck {
	one := checkURL(schemes...)
	return func(v string) error {
		for _, part := range strings.Split(v, ",") {
			if err := one(strings.TrimSpace(part)); err != nil {
				return fmt.Errorf("%q: %w", part, err)
			}
		}
		return nil
	}
}

func checkHostPort(v string) error {
	_, _, err := net.SplitHostPort(v)
	return err
}

// checkSecret accepts any printable value without surrounding whitespace.
func checkSecret(v string) error {
	if strings.TrimSpace(v) != v {
		return errors.New("leading or trailing whitespace")
	}
	return checkPrintable(v)
}

func checkPlayerName(v string) error {
	if len(v) > maxPlayerName {
		return fmt.Errorf("longer than %d bytes", maxPlayerName)
	}
	return checkPrintable(v)
}

func checkPrintable(v string) error {
	for _, r := range v {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("non-printable character %U", r)
		}
	}
	return nil
}

// validateEnvVar bounds the value and runs the check for the field it
// overrides.
func validateEnvVar(key, value string, check envCheck) error {
	if len(value) > maxEnvValueLen {
		return fmt.Errorf("%w: environment variable %s too long: %d > %d",
			errors.ErrInvalidConfig, key, len(value), maxEnvValueLen)
	}
	if check == nil {
		return nil
	}
	if err := check(value); err != nil {
		return fmt.Errorf("%w: environment variable %s: %w", errors.ErrInvalidConfig, key, err)
	}
	return nil
}
