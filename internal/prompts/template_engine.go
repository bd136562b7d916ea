package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Built-in template names
const (
	LikeEstimation  = "like_estimation"
	CharacterPosts  = "character_posts"
	CharacterRoster = "character_roster"
)

//go:embed templates/*.txt
var defaultTemplates embed.FS

var varRegex = regexp.MustCompile(`\{\{(\w+)\}\}`)

// TemplateEngine manages prompt templates
type TemplateEngine struct {
	templates map[string]*Template
	mu        sync.RWMutex
}

// Template represents a prompt template with variables
type Template struct {
	Name      string   `json:"name"`
	Content   string   `json:"content"`
	Variables []string `json:"variables"`
}

// NewTemplateEngine creates an engine with the built-in templates registered.
func NewTemplateEngine() (*TemplateEngine, error) {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	if err := e.loadFS(defaultTemplates, "templates"); err != nil {
		return nil, err
	}
	return e, nil
}

// LoadDir registers every *.txt file in dir, replacing built-ins of the same name.
func (e *TemplateEngine) LoadDir(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("template directory: %w", err)
	}
	return e.loadFS(os.DirFS(dir), ".")
}

func (e *TemplateEngine) loadFS(fsys fs.FS, root string) error {
	matches, err := fs.Glob(fsys, path.Join(root, "*.txt"))
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}
	for _, file := range matches {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", file, err)
		}
		name := strings.TrimSuffix(path.Base(file), ".txt")
		e.RegisterTemplate(&Template{Name: name, Content: string(data)})
	}
	return nil
}

// RegisterTemplate registers a new template
func (e *TemplateEngine) RegisterTemplate(tmpl *Template) {
	tmpl.Variables = ParseTemplateVariables(tmpl.Content)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[tmpl.Name] = tmpl
}

// GetTemplate retrieves a template by name
func (e *TemplateEngine) GetTemplate(name string) (*Template, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tmpl, ok := e.templates[name]
	if !ok {
		return nil, fmt.Errorf("template not found: %s", name)
	}
	return tmpl, nil
}

// Render substitutes {{name}} placeholders. Placeholders without a value are kept as-is.
func (e *TemplateEngine) Render(templateName string, vars map[string]string) (string, error) {
	tmpl, err := e.GetTemplate(templateName)
	if err != nil {
		return "", err
	}

	return varRegex.ReplaceAllStringFunc(tmpl.Content, func(match string) string {
		name := varRegex.FindStringSubmatch(match)[1]
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	}), nil
}

// ParseTemplateVariables extracts variables from a template
func ParseTemplateVariables(templateContent string) []string {
	matches := varRegex.FindAllStringSubmatch(templateContent, -1)

	unique := make(map[string]bool)
	for _, match := range matches {
		if len(match) > 1 {
			unique[match[1]] = true
		}
	}

	vars := make([]string, 0, len(unique))
	for v := range unique {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}
