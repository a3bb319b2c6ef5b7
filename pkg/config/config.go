// Package config locates and parses the project configuration, from either
// a dedicated TOML file (bumpver.toml, .bumpver.toml, pycalver.toml), a
// pyproject.toml [tool.bumpver] section, or a setup.cfg [bumpver] section.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/datawire/dlib/dlog"
	"gopkg.in/ini.v1"

	"github.com/calvertools/bumpver/pkg/patterns"
	"github.com/calvertools/bumpver/pkg/pep440"
	"github.com/calvertools/bumpver/pkg/rewrite"
	"github.com/calvertools/bumpver/pkg/version"
)

// TagScope selects which VCS tags are considered when looking for the
// latest version tag.
type TagScope string

const (
	TagScopeDefault TagScope = "default"
	TagScopeGlobal  TagScope = "global"
	TagScopeBranch  TagScope = "branch"
)

func ParseTagScope(s string) (TagScope, error) {
	switch TagScope(s) {
	case TagScopeDefault, TagScopeGlobal, TagScopeBranch:
		return TagScope(s), nil
	default:
		return "", fmt.Errorf("invalid value for tag_scope: %q", s)
	}
}

const (
	DefaultCommitMessage = "bump version to {new_version}"
	DefaultTagMessage    = "{new_version}"
)

// SupportedConfigs are the recognized config file names, in no particular
// order. Discovery order is defined by configCandidates.
var SupportedConfigs = []string{
	"setup.cfg",
	"pyproject.toml",
	"pycalver.toml",
	"bumpver.toml",
	".bumpver.toml",
}

var configCandidates = []string{
	"pycalver.toml",
	"bumpver.toml",
	".bumpver.toml",
	"pyproject.toml",
	"setup.cfg",
}

// ProjectContext describes where a project keeps its configuration and
// which VCS it uses.
type ProjectContext struct {
	Path           string
	ConfigFilepath string
	ConfigRelPath  string
	ConfigFormat   string // "toml" or "cfg"
	VCSType        string // "git", "hg" or ""
}

// pickConfigFilepath prefers a config that already contains a bumpver
// section with a current_version, so a project can carry multiple config
// files. Failing that, any existing candidate wins, and a brand new project
// falls back to bumpver.toml.
func pickConfigFilepath(path string) string {
	for _, name := range configCandidates {
		candidate := filepath.Join(path, name)
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		content := string(data)
		hasSection := strings.Contains(content, "bumpver]") || strings.Contains(content, "pycalver]")
		if hasSection && strings.Contains(content, "current_version") {
			return candidate
		}
	}
	for _, name := range configCandidates {
		candidate := filepath.Join(path, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join(path, "bumpver.toml")
}

// InitProjectContext initializes a ProjectContext from a project path.
func InitProjectContext(projectPath string) ProjectContext {
	if projectPath == "" {
		projectPath = "."
	}

	configFilepath := pickConfigFilepath(projectPath)
	configRelPath, err := filepath.Rel(projectPath, configFilepath)
	if err != nil {
		configRelPath = configFilepath
	}

	configFormat := strings.TrimPrefix(filepath.Ext(configFilepath), ".")

	vcsType := ""
	if _, err := os.Stat(filepath.Join(projectPath, ".git")); err == nil {
		vcsType = "git"
	} else if _, err := os.Stat(filepath.Join(projectPath, ".hg")); err == nil {
		vcsType = "hg"
	}

	return ProjectContext{
		Path:           projectPath,
		ConfigFilepath: configFilepath,
		ConfigRelPath:  configRelPath,
		ConfigFormat:   configFormat,
		VCSType:        vcsType,
	}
}

// Config holds the parsed and validated project configuration.
type Config struct {
	CurrentVersion string
	VersionPattern string
	PEP440Version  string

	CommitMessage string
	TagMessage    string
	TagScope      TagScope

	PreCommitHook  string
	PostCommitHook string

	Commit bool
	Tag    bool
	Push   bool

	FilePatterns []rewrite.FilePatterns
}

// rawConfig is the config before pattern compilation and validation.
type rawConfig struct {
	CurrentVersion string
	VersionPattern string
	CommitMessage  string
	TagMessage     string
	TagScope       string
	PreCommitHook  string
	PostCommitHook string
	Commit         bool
	Tag            *bool
	Push           *bool
	FilePatterns   map[string][]string
}

type tomlSection struct {
	CurrentVersion *string             `toml:"current_version"`
	VersionPattern *string             `toml:"version_pattern"`
	CommitMessage  *string             `toml:"commit_message"`
	TagMessage     *string             `toml:"tag_message"`
	TagScope       *string             `toml:"tag_scope"`
	PreCommitHook  *string             `toml:"pre_commit_hook"`
	PostCommitHook *string             `toml:"post_commit_hook"`
	Commit         *bool               `toml:"commit"`
	Tag            *bool               `toml:"tag"`
	Push           *bool               `toml:"push"`
	FilePatterns   map[string][]string `toml:"file_patterns"`
}

type tomlFile struct {
	Bumpver  *tomlSection `toml:"bumpver"`
	Pycalver *tomlSection `toml:"pycalver"`
	Tool     struct {
		Bumpver *tomlSection `toml:"bumpver"`
	} `toml:"tool"`
}

func strOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return strings.Trim(*p, "'\" ")
}

func parseTOML(content string) (*rawConfig, error) {
	var file tomlFile
	if err := toml.Unmarshal([]byte(content), &file); err != nil {
		return nil, err
	}

	var section *tomlSection
	switch {
	case file.Tool.Bumpver != nil:
		section = file.Tool.Bumpver
	case file.Bumpver != nil:
		section = file.Bumpver
	case file.Pycalver != nil:
		section = file.Pycalver
	default:
		return nil, fmt.Errorf("missing [bumpver] section, perhaps try 'bumpver init'")
	}

	raw := &rawConfig{
		CurrentVersion: strOr(section.CurrentVersion, ""),
		VersionPattern: strOr(section.VersionPattern, ""),
		CommitMessage:  strOr(section.CommitMessage, DefaultCommitMessage),
		TagMessage:     strOr(section.TagMessage, DefaultTagMessage),
		TagScope:       strOr(section.TagScope, string(TagScopeDefault)),
		PreCommitHook:  strOr(section.PreCommitHook, ""),
		PostCommitHook: strOr(section.PostCommitHook, ""),
		Tag:            section.Tag,
		Push:           section.Push,
		FilePatterns:   section.FilePatterns,
	}
	if section.Commit != nil {
		raw.Commit = *section.Commit
	}
	if raw.FilePatterns == nil {
		raw.FilePatterns = map[string][]string{}
	}
	return raw, nil
}

func iniBool(section *ini.Section, key string) *bool {
	if !section.HasKey(key) {
		return nil
	}
	val := strings.ToLower(section.Key(key).String())
	b := val == "yes" || val == "true" || val == "1" || val == "on"
	return &b
}

func parseINI(content string) (*rawConfig, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
	}, []byte(content))
	if err != nil {
		return nil, err
	}

	var section *ini.Section
	for _, name := range []string{"pycalver", "bumpver"} {
		if s, err := file.GetSection(name); err == nil {
			section = s
			break
		}
	}
	if section == nil {
		return nil, fmt.Errorf("missing [bumpver] section, perhaps try 'bumpver init'")
	}

	get := func(key, def string) string {
		if section.HasKey(key) {
			return strings.Trim(section.Key(key).String(), "'\" ")
		}
		return def
	}

	raw := &rawConfig{
		CurrentVersion: get("current_version", ""),
		VersionPattern: get("version_pattern", ""),
		CommitMessage:  get("commit_message", DefaultCommitMessage),
		TagMessage:     get("tag_message", DefaultTagMessage),
		TagScope:       get("tag_scope", string(TagScopeDefault)),
		PreCommitHook:  get("pre_commit_hook", ""),
		PostCommitHook: get("post_commit_hook", ""),
		Tag:            iniBool(section, "tag"),
		Push:           iniBool(section, "push"),
		FilePatterns:   map[string][]string{},
	}
	if commit := iniBool(section, "commit"); commit != nil {
		raw.Commit = *commit
	}

	for _, name := range []string{"pycalver:file_patterns", "bumpver:file_patterns"} {
		fpSection, err := file.GetSection(name)
		if err != nil {
			continue
		}
		for _, key := range fpSection.Keys() {
			var pats []string
			for _, line := range strings.Split(key.String(), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					pats = append(pats, line)
				}
			}
			raw.FilePatterns[key.Name()] = pats
		}
		break
	}
	return raw, nil
}

func validateRaw(raw *rawConfig) error {
	if raw.VersionPattern == "" {
		return fmt.Errorf("missing 'version_pattern' configuration")
	}
	if raw.CurrentVersion == "" {
		return fmt.Errorf("missing 'current_version' configuration")
	}
	if strings.Contains(raw.VersionPattern, "{") || strings.Contains(raw.VersionPattern, "}") {
		return fmt.Errorf("legacy version_pattern %q is not supported", raw.VersionPattern)
	}
	return nil
}

var reWhitespace = regexp.MustCompile(`\s+`)

func validateVersionWithPattern(currentVersion, versionPattern string) error {
	if _, err := version.Parse(currentVersion, versionPattern); err != nil {
		return fmt.Errorf(
			"invalid configuration: current_version=%q is invalid for version_pattern=%q",
			currentVersion, versionPattern,
		)
	}
	if invalid := reWhitespace.FindString(versionPattern); invalid != "" {
		return fmt.Errorf("invalid character(s) %q in version_pattern = %q", invalid, versionPattern)
	}
	if !version.IsValidWeekPattern(versionPattern) {
		return fmt.Errorf("invalid week number pattern: %q", versionPattern)
	}
	return nil
}

// globExpandedFilePatterns expands glob keys of file_patterns into concrete
// paths. A glob with no matches falls back to being treated as a plain path,
// with a warning.
func globExpandedFilePatterns(ctx context.Context, rawPatterns map[string][]string) [][2]interface{} {
	keys := make([]string, 0, len(rawPatterns))
	for key := range rawPatterns {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var items [][2]interface{}
	for _, fileGlob := range keys {
		matches, err := filepath.Glob(fileGlob)
		if err != nil || len(matches) == 0 {
			if err == nil {
				dlog.Warnf(ctx, "invalid config, no such file: %s", fileGlob)
			}
			items = append(items, [2]interface{}{fileGlob, rawPatterns[fileGlob]})
			continue
		}
		sort.Strings(matches)
		for _, match := range matches {
			items = append(items, [2]interface{}{match, rawPatterns[fileGlob]})
		}
	}
	return items
}

func compileFilePatterns(ctx context.Context, raw *rawConfig) ([]rewrite.FilePatterns, error) {
	byPath := map[string][]*patterns.Pattern{}
	var order []string

	for _, item := range globExpandedFilePatterns(ctx, raw.FilePatterns) {
		path := item[0].(string)
		rawPatterns := item[1].([]string)

		var compiled []*patterns.Pattern
		for _, rawPattern := range rawPatterns {
			if strings.HasPrefix(rawPattern, "[") {
				return nil, fmt.Errorf(
					"invalid pattern %q for %q, character not valid in this position '['",
					rawPattern, path,
				)
			}
			pat, err := patterns.Compile(raw.VersionPattern, rawPattern)
			if err != nil {
				dlog.Warnf(ctx, "invalid patterns for %s (%s)", path, rawPattern)
				return nil, err
			}
			compiled = append(compiled, pat)
		}

		if _, seen := byPath[path]; !seen {
			order = append(order, path)
		}
		byPath[path] = append(byPath[path], compiled...)
	}

	filePatterns := make([]rewrite.FilePatterns, 0, len(order))
	for _, path := range order {
		filePatterns = append(filePatterns, rewrite.FilePatterns{
			Path:     path,
			Patterns: byPath[path],
		})
	}
	return filePatterns, nil
}

func parseConfig(ctx context.Context, raw *rawConfig) (*Config, error) {
	if err := validateRaw(raw); err != nil {
		return nil, err
	}
	if err := validateVersionWithPattern(raw.CurrentVersion, raw.VersionPattern); err != nil {
		return nil, err
	}

	filePatterns, err := compileFilePatterns(ctx, raw)
	if err != nil {
		return nil, err
	}

	tagScope, err := ParseTagScope(raw.TagScope)
	if err != nil {
		return nil, err
	}

	tag := raw.Tag != nil && *raw.Tag
	push := raw.Push != nil && *raw.Push

	if tag && !raw.Commit {
		return nil, fmt.Errorf("commit=true required if tag=true")
	}
	if push && !raw.Commit {
		return nil, fmt.Errorf("commit=true required if push=true")
	}

	for _, hook := range []string{raw.PreCommitHook, raw.PostCommitHook} {
		if hook == "" {
			continue
		}
		if _, err := os.Stat(hook); err != nil {
			return nil, fmt.Errorf("invalid hook: path %q does not exist", hook)
		}
	}

	return &Config{
		CurrentVersion: raw.CurrentVersion,
		VersionPattern: raw.VersionPattern,
		PEP440Version:  pep440.Normalize(raw.CurrentVersion),
		CommitMessage:  raw.CommitMessage,
		TagMessage:     raw.TagMessage,
		TagScope:       tagScope,
		PreCommitHook:  raw.PreCommitHook,
		PostCommitHook: raw.PostCommitHook,
		Commit:         raw.Commit,
		Tag:            tag,
		Push:           push,
		FilePatterns:   filePatterns,
	}, nil
}

// selfPatternFromContent derives the file pattern for the config file
// itself, so that current_version is always kept up to date even when the
// config file is not listed under file_patterns.
func selfPatternFromContent(raw *rawConfig, content string) (string, error) {
	isConfigSection := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if isConfigSection && strings.HasPrefix(line, "current_version") {
			return strings.Replace(line, raw.CurrentVersion, raw.VersionPattern, 1), nil
		}
		switch strings.TrimSpace(line) {
		case "[pycalver]", "[bumpver]", "[tool.bumpver]":
			isConfigSection = true
		default:
			if len(line) > 0 && line[0] == '[' && line[len(line)-1] == ']' {
				isConfigSection = false
			}
		}
	}
	return "", fmt.Errorf("could not parse 'current_version'")
}

func parseRawConfig(pctx ProjectContext) (*rawConfig, error) {
	data, err := os.ReadFile(pctx.ConfigFilepath)
	if err != nil {
		return nil, err
	}
	content := string(data)

	var raw *rawConfig
	switch pctx.ConfigFormat {
	case "toml":
		raw, err = parseTOML(content)
	case "cfg":
		raw, err = parseINI(content)
	default:
		err = fmt.Errorf(
			"invalid config format %q, supported formats are setup.cfg and pyproject.toml",
			pctx.ConfigFormat,
		)
	}
	if err != nil {
		return nil, err
	}

	if err := validateRaw(raw); err != nil {
		return nil, err
	}
	if _, ok := raw.FilePatterns[pctx.ConfigRelPath]; !ok {
		selfPattern, err := selfPatternFromContent(raw, content)
		if err != nil {
			return nil, err
		}
		raw.FilePatterns[pctx.ConfigRelPath] = []string{selfPattern}
	}
	return raw, nil
}

// Parse loads and validates the configuration of a project.
func Parse(ctx context.Context, pctx ProjectContext) (*Config, error) {
	raw, err := parseRawConfig(pctx)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse %s: %w", pctx.ConfigRelPath, err)
	}
	return parseConfig(ctx, raw)
}

// Init locates the project config and parses it. With cfgMissingOK a
// missing config file yields a nil Config instead of an error.
func Init(ctx context.Context, projectPath string, cfgMissingOK bool) (ProjectContext, *Config, error) {
	pctx := InitProjectContext(projectPath)
	if _, err := os.Stat(pctx.ConfigFilepath); err != nil {
		if cfgMissingOK {
			return pctx, nil, nil
		}
		return pctx, nil, fmt.Errorf("file not found: %s", pctx.ConfigRelPath)
	}
	cfg, err := Parse(ctx, pctx)
	if err != nil {
		return pctx, nil, err
	}
	return pctx, cfg, nil
}

func initialVersion() string {
	return time.Now().UTC().Format("2006") + ".1001-alpha"
}
