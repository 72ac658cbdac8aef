// Package parse turns raw listings into typed resources, one parser per kind.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"vinsly/internal/frontmatter"
	"vinsly/internal/resource"

	"github.com/mitchellh/mapstructure"
)

var ErrMalformed = errors.New("malformed resource")

type Func func(resource.Raw) (resource.Resource, error)

// For returns the parser for kind.
func For(kind resource.Kind) Func {
	switch kind {
	case resource.KindAgent:
		return Agent
	case resource.KindSkill:
		return Skill
	case resource.KindCommand:
		return Command
	case resource.KindMCP:
		return MCP
	case resource.KindHook:
		return Hook
	case resource.KindMemory:
		return Memory
	}
	return func(raw resource.Raw) (resource.Resource, error) {
		return resource.Resource{}, fmt.Errorf("%w: unknown kind %q", ErrMalformed, raw.Kind)
	}
}

// Any dispatches on the raw's own kind.
func Any(raw resource.Raw) (resource.Resource, error) {
	return For(raw.Kind)(raw)
}

func base(raw resource.Raw) (resource.Resource, error) {
	if raw.Name == "" {
		return resource.Resource{}, fmt.Errorf("%w: %s without a name at %s", ErrMalformed, raw.Kind, raw.Path)
	}
	return resource.Resource{
		Kind:    raw.Kind,
		Scope:   raw.Scope,
		Name:    raw.Name,
		Path:    raw.Path,
		Source:  raw.Source,
		Content: raw.Content,
	}, nil
}

type agentHeader struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Model       string           `yaml:"model"`
	Color       string           `yaml:"color"`
	Tools       frontmatter.List `yaml:"tools"`
}

func Agent(raw resource.Raw) (resource.Resource, error) {
	r, err := base(raw)
	if err != nil {
		return r, err
	}
	var h agentHeader
	if _, err := frontmatter.Decode(raw.Content, &h); err != nil {
		return r, fmt.Errorf("%w: agent %s: %v", ErrMalformed, raw.Name, err)
	}
	r.Description = strings.TrimSpace(h.Description)
	r.Agent = &resource.AgentInfo{
		Model: h.Model,
		Color: h.Color,
		Tools: h.Tools,
	}
	return r, nil
}

type skillHeader struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

func Skill(raw resource.Raw) (resource.Resource, error) {
	r, err := base(raw)
	if err != nil {
		return r, err
	}
	var h skillHeader
	if _, err := frontmatter.Decode(raw.Content, &h); err != nil {
		return r, fmt.Errorf("%w: skill %s: %v", ErrMalformed, raw.Name, err)
	}
	r.Description = strings.TrimSpace(h.Description)
	r.Skill = &resource.SkillInfo{
		Directory: raw.Directory,
		HasAssets: raw.HasAssets,
	}
	return r, nil
}

type commandHeader struct {
	Description  string           `yaml:"description"`
	ArgumentHint string           `yaml:"argument-hint"`
	AllowedTools frontmatter.List `yaml:"allowed-tools"`
	Model        string           `yaml:"model"`
}

// Command parses a slash command. Its name is the namespaced form, with
// nested directories joined by ':'.
func Command(raw resource.Raw) (resource.Resource, error) {
	r, err := base(raw)
	if err != nil {
		return r, err
	}
	var h commandHeader
	if _, err := frontmatter.Decode(raw.Content, &h); err != nil {
		return r, fmt.Errorf("%w: command %s: %v", ErrMalformed, raw.Name, err)
	}
	var namespace string
	if i := strings.LastIndex(raw.Name, ":"); i >= 0 {
		namespace = raw.Name[:i]
	}
	r.Description = strings.TrimSpace(h.Description)
	r.Command = &resource.CommandInfo{
		Namespace:    namespace,
		ArgumentHint: h.ArgumentHint,
		AllowedTools: h.AllowedTools,
		Model:        h.Model,
	}
	return r, nil
}

// MCP parses one server entry of an mcpServers map. The entry is identified by
// its config file and key; Content carries the entry as JSON so it can be
// written back verbatim.
func MCP(raw resource.Raw) (resource.Resource, error) {
	r, err := base(raw)
	if err != nil {
		return r, err
	}
	if raw.Source == "" {
		return r, fmt.Errorf("%w: mcp server %s has no source file", ErrMalformed, raw.Name)
	}

	var srv resource.MCPServer
	if err := mapstructure.Decode(raw.Fields, &srv); err != nil {
		return r, fmt.Errorf("%w: mcp server %s: %v", ErrMalformed, raw.Name, err)
	}
	if srv.Type == "" {
		switch {
		case srv.Command != "":
			srv.Type = "stdio"
		case srv.URL != "":
			srv.Type = "http"
		}
	}

	content, err := entryContent(raw)
	if err != nil {
		return r, err
	}

	r.ID = raw.Source + "#" + raw.Name
	r.Content = content
	r.MCP = &srv
	r.Description = describeServer(srv)
	return r, nil
}

func describeServer(srv resource.MCPServer) string {
	if srv.URL != "" {
		return srv.Type + " " + srv.URL
	}
	return strings.TrimSpace(srv.Type + " " + strings.Join(append([]string{srv.Command}, srv.Args...), " "))
}

// Hook parses one command entry of a settings file hooks table.
func Hook(raw resource.Raw) (resource.Resource, error) {
	if raw.Source == "" {
		return resource.Resource{}, fmt.Errorf("%w: hook has no source file", ErrMalformed)
	}

	var h resource.Hook
	if err := mapstructure.Decode(raw.Fields, &h); err != nil {
		return resource.Resource{}, fmt.Errorf("%w: hook in %s: %v", ErrMalformed, raw.Source, err)
	}
	if h.Event == "" || h.Command == "" {
		return resource.Resource{}, fmt.Errorf("%w: hook in %s needs an event and a command", ErrMalformed, raw.Source)
	}
	if h.Type == "" {
		h.Type = "command"
	}

	data, err := json.Marshal(h)
	if err != nil {
		return resource.Resource{}, err
	}

	matcher := h.Matcher
	if matcher == "" {
		matcher = "*"
	}
	return resource.Resource{
		Kind:        resource.KindHook,
		Scope:       raw.Scope,
		Name:        h.Event + ":" + matcher,
		ID:          raw.Source + "#" + resource.HookID(h.Event, h.Matcher, h.Command, h.Occurrence),
		Source:      raw.Source,
		Description: h.Command,
		Content:     string(data),
		Hook:        &h,
	}, nil
}

func entryContent(raw resource.Raw) (string, error) {
	if raw.Content != "" {
		return raw.Content, nil
	}
	data, err := json.Marshal(raw.Fields)
	if err != nil {
		return "", fmt.Errorf("%w: %s %s: %v", ErrMalformed, raw.Kind, raw.Name, err)
	}
	return string(data), nil
}
