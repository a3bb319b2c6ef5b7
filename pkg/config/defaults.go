package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const cfgBaseTemplate = `[bumpver]
current_version = "%s"
version_pattern = "YYYY.BUILD[-TAG]"
commit_message = "bump version {old_version} -> {new_version}"
tag_message = "{new_version}"
tag_scope = "%s"
pre_commit_hook = ""
post_commit_hook = ""
commit = True
tag = True
push = True

[bumpver:file_patterns]
`

const tomlBaseTemplate = `[bumpver]
current_version = "%s"
version_pattern = "YYYY.BUILD[-TAG]"
commit_message = "bump version {old_version} -> {new_version}"
tag_message = "{new_version}"
tag_scope = "%s"
pre_commit_hook = ""
post_commit_hook = ""
commit = true
tag = true
push = true

[bumpver.file_patterns]
`

const pyprojectBaseTemplate = `[tool.bumpver]
current_version = "%s"
version_pattern = "YYYY.BUILD[-TAG]"
commit_message = "bump version {old_version} -> {new_version}"
tag_message = "{new_version}"
tag_scope = "%s"
pre_commit_hook = ""
post_commit_hook = ""
commit = true
tag = true
push = true

[tool.bumpver.file_patterns]
`

var cfgDefaultPatternStrs = [][2]string{
	{"setup.cfg", "setup.cfg =\n    current_version = \"{version}\"\n"},
	{"setup.py", "setup.py =\n    \"{version}\"\n    \"{pep440_version}\"\n"},
	{"README.rst", "README.rst =\n    {version}\n    {pep440_version}\n"},
	{"README.md", "README.md =\n    {version}\n    {pep440_version}\n"},
}

func tomlVersionOnlyPatternStr(filename string) string {
	return fmt.Sprintf("%q = [\n    'current_version = \"{version}\"',\n]\n", filename)
}

func tomlBothVersionsPatternStr(filename string) string {
	return fmt.Sprintf("%q = [\n    \"{version}\",\n    \"{pep440_version}\",\n]\n", filename)
}

var tomlDefaultPatternStrs = [][2]string{
	{"pyproject.toml", tomlVersionOnlyPatternStr("pyproject.toml")},
	{"pycalver.toml", tomlVersionOnlyPatternStr("pycalver.toml")},
	{"bumpver.toml", tomlVersionOnlyPatternStr("bumpver.toml")},
	{".bumpver.toml", tomlVersionOnlyPatternStr(".bumpver.toml")},
	{"setup.py", tomlBothVersionsPatternStr("setup.py")},
	{"README.rst", tomlBothVersionsPatternStr("README.rst")},
	{"README.md", tomlBothVersionsPatternStr("README.md")},
}

// DefaultConfig generates the initial config content for 'bumpver init',
// with a file_patterns entry for each recognized file the project already
// has.
func DefaultConfig(pctx ProjectContext) (string, error) {
	var baseTemplate string
	var patternStrs [][2]string

	switch pctx.ConfigFormat {
	case "cfg":
		baseTemplate = cfgBaseTemplate
		patternStrs = cfgDefaultPatternStrs
	case "toml":
		if filepath.Base(pctx.ConfigFilepath) == "pyproject.toml" {
			baseTemplate = pyprojectBaseTemplate
		} else {
			baseTemplate = tomlBaseTemplate
		}
		patternStrs = tomlDefaultPatternStrs
	default:
		return "", fmt.Errorf(
			"invalid config format %q, must be either 'toml' or 'cfg'", pctx.ConfigFormat,
		)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, baseTemplate, initialVersion(), TagScopeDefault)

	for _, entry := range patternStrs {
		if _, err := os.Stat(filepath.Join(pctx.Path, entry[0])); err == nil {
			sb.WriteString(entry[1])
		}
	}

	hasConfigFile := false
	for _, filename := range SupportedConfigs {
		if _, err := os.Stat(filepath.Join(pctx.Path, filename)); err == nil {
			hasConfigFile = true
			break
		}
	}
	if !hasConfigFile {
		if pctx.ConfigFormat == "cfg" {
			sb.WriteString(cfgDefaultPatternStrs[0][1])
		} else {
			sb.WriteString(tomlVersionOnlyPatternStr("bumpver.toml"))
		}
	}
	sb.WriteString("\n")
	return sb.String(), nil
}

// WriteContent appends the initial default config to the project config
// file, creating it if needed.
func WriteContent(pctx ProjectContext) error {
	content, err := DefaultConfig(pctx)
	if err != nil {
		return err
	}
	if _, err := os.Stat(pctx.ConfigFilepath); err == nil {
		content = "\n" + content
	}
	file, err := os.OpenFile(pctx.ConfigFilepath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.WriteString(content); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
