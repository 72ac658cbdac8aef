// Package resource holds the records the workspace manages: agents, skills,
// slash commands, MCP server entries, hooks and memory notes.
package resource

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidName  = errors.New("invalid resource name")
	ErrInvalidScope = errors.New("invalid scope")
)

type Kind string

const (
	KindAgent   Kind = "agent"
	KindSkill   Kind = "skill"
	KindCommand Kind = "command"
	KindMCP     Kind = "mcp"
	KindHook    Kind = "hook"
	KindMemory  Kind = "memory"
)

type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeProject Scope = "project"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeProject:
		return ScopeProject, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
}

// Resource is one committed record. Path is set for file-backed kinds; ID is
// set for entries living inside a shared config file (MCP servers, hooks),
// whose file is recorded in Source.
type Resource struct {
	Key         string `yaml:"key"`
	Kind        Kind   `yaml:"kind"`
	Scope       Scope  `yaml:"scope"`
	Name        string `yaml:"name"`
	ID          string `yaml:"id,omitempty"`
	Path        string `yaml:"path,omitempty"`
	Source      string `yaml:"source,omitempty"`
	Description string `yaml:"description,omitempty"`
	Content     string `yaml:"content,omitempty"`
	Favorite    bool   `yaml:"favorite,omitempty"`

	Agent   *AgentInfo   `yaml:"agent,omitempty"`
	Skill   *SkillInfo   `yaml:"skill,omitempty"`
	Command *CommandInfo `yaml:"command,omitempty"`
	MCP     *MCPServer   `yaml:"mcp,omitempty"`
	Hook    *Hook        `yaml:"hook,omitempty"`
	Memory  *MemoryInfo  `yaml:"memory,omitempty"`
}

type AgentInfo struct {
	Model string   `yaml:"model,omitempty"`
	Color string   `yaml:"color,omitempty"`
	Tools []string `yaml:"tools,omitempty"`
}

type SkillInfo struct {
	Directory string `yaml:"directory"`
	HasAssets bool   `yaml:"has_assets,omitempty"`
}

type CommandInfo struct {
	Namespace    string   `yaml:"namespace,omitempty"`
	ArgumentHint string   `yaml:"argument_hint,omitempty"`
	AllowedTools []string `yaml:"allowed_tools,omitempty"`
	Model        string   `yaml:"model,omitempty"`
}

type MCPServer struct {
	Type    string            `yaml:"type,omitempty" mapstructure:"type" json:"type,omitempty"`
	Command string            `yaml:"command,omitempty" mapstructure:"command" json:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty" mapstructure:"args" json:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" mapstructure:"env" json:"env,omitempty"`
	URL     string            `yaml:"url,omitempty" mapstructure:"url" json:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty" mapstructure:"headers" json:"headers,omitempty"`
}

type Hook struct {
	Event   string `yaml:"event" mapstructure:"event" json:"event"`
	Matcher string `yaml:"matcher,omitempty" mapstructure:"matcher" json:"matcher,omitempty"`
	Type    string `yaml:"type,omitempty" mapstructure:"type" json:"type,omitempty"`
	Command string `yaml:"command" mapstructure:"command" json:"command"`
	Timeout int    `yaml:"timeout,omitempty" mapstructure:"timeout" json:"timeout,omitempty"`

	// Occurrence counts earlier entries in the same file with the same
	// event, matcher and command.
	Occurrence int `yaml:"occurrence,omitempty" mapstructure:"occurrence" json:"occurrence,omitempty"`
}

type MemoryInfo struct {
	Title    string `yaml:"title,omitempty"`
	Sections int    `yaml:"sections,omitempty"`
}

// Locator is the path used to place the resource on disk: its own file, or
// the shared config file it is an entry of.
func (r Resource) Locator() string {
	if r.Path != "" {
		return r.Path
	}
	return r.Source
}

func (r Resource) WithFavorite(fav bool) Resource {
	newR := r
	newR.Favorite = fav
	return newR
}

// Raw is what a listing collaborator hands back before kind-specific parsing.
type Raw struct {
	Kind      Kind
	Scope     Scope
	Name      string
	Path      string
	Source    string
	Content   string
	Directory string
	HasAssets bool
	Fields    map[string]any
}

// Draft describes a resource to write through a backend. Target names the
// shared config file for entry kinds when it is not the default one.
type Draft struct {
	Kind        Kind
	Scope       Scope
	Name        string
	Content     string
	ProjectPath string
	Target      string
}

// DraftOf rebuilds the write payload a resource was created from, so a
// deleted resource can be written back unchanged.
func DraftOf(r Resource) Draft {
	d := Draft{
		Kind:    r.Kind,
		Scope:   r.Scope,
		Name:    r.Name,
		Content: r.Content,
	}
	if r.Scope == ScopeProject {
		d.ProjectPath = ProjectRoot(r.Locator())
	}
	if r.Path == "" {
		d.Target = r.Source
	}
	return d
}

func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q contains '..'", ErrInvalidName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidName, name)
	}
	return nil
}
