package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandsim/server/internal/models"
)

func TestNewTemplateEngineLoadsBuiltins(t *testing.T) {
	e, err := NewTemplateEngine()
	require.NoError(t, err)

	for _, name := range []string{LikeEstimation, CharacterPosts, CharacterRoster} {
		tmpl, err := e.GetTemplate(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, tmpl.Variables, name)
	}

	tmpl, _ := e.GetTemplate(CharacterPosts)
	assert.Contains(t, tmpl.Variables, "previous_posts")
	assert.Contains(t, tmpl.Variables, "company_username")
}

func TestRenderKeepsUnknownPlaceholders(t *testing.T) {
	e, err := NewTemplateEngine()
	require.NoError(t, err)
	e.RegisterTemplate(&Template{Name: "greet", Content: "Hi {{name}}, meet {{other}}. {{name}}!"})

	out, err := e.Render("greet", map[string]string{"name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ana, meet {{other}}. Ana!", out)

	_, err = e.Render("missing", nil)
	assert.Error(t, err)
}

func TestLoadDirOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LikeEstimation+".txt"), []byte("likes for {{post_text}}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))

	e, err := NewTemplateEngine()
	require.NoError(t, err)
	require.NoError(t, e.LoadDir(dir))

	out, err := e.Render(LikeEstimation, map[string]string{"post_text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "likes for hello", out)

	assert.Error(t, e.LoadDir(filepath.Join(dir, "nope")))
}

func TestParseTemplateVariables(t *testing.T) {
	vars := ParseTemplateVariables("{{b}} {{a}} {{b}} {{ not_a_var }}")
	assert.Equal(t, []string{"a", "b"}, vars)
}

func TestCharacterPostsVars(t *testing.T) {
	game := &models.Game{
		Company:    models.CompanySnapshot{Name: "Acme", Username: "acme", Description: "Rockets"},
		Scenario:   models.ScenarioSnapshot{Name: "Launch", Description: "Launch week"},
		Characters: []models.Character{{Name: "Ana", Username: "ana", Description: "Skeptic"}},
	}
	history := []models.Post{{Day: 0, Creator: models.Creator{Name: "Acme", Username: "acme"}, Text: "Hello", Likes: 3}}

	e, err := NewTemplateEngine()
	require.NoError(t, err)
	out, err := e.Render(CharacterPosts, CharacterPostsVars(game, "Launch day!", history))
	require.NoError(t, err)

	assert.Contains(t, out, "- Ana (@ana): Skeptic")
	assert.Contains(t, out, "[Day 0] Acme (@acme), 3 likes: Hello")
	assert.Contains(t, out, "Launch day!")
	assert.Contains(t, out, "@acme: Rockets")
	assert.NotContains(t, out, "{{")
}

func TestFormatEmpty(t *testing.T) {
	assert.Equal(t, "(none)", FormatCharacters(nil))
	assert.Equal(t, "(no posts yet)", FormatPosts(nil))
}
