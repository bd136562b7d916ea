package prompts

import (
	"fmt"
	"strconv"
	"strings"

	"brandsim/server/internal/models"
)

// LikeEstimationVars fills the like estimation template for a post on game.
func LikeEstimationVars(game *models.Game, postText string) map[string]string {
	vars := gameVars(game)
	vars["characters"] = FormatCharacters(game.Characters)
	vars["post_text"] = postText
	return vars
}

// CharacterPostsVars fills the reaction template; history is every post of the game so far.
func CharacterPostsVars(game *models.Game, postText string, history []models.Post) map[string]string {
	vars := gameVars(game)
	vars["characters"] = FormatCharacters(game.Characters)
	vars["post_text"] = postText
	vars["previous_posts"] = FormatPosts(history)
	return vars
}

// RosterVars fills the roster template for a game about to be created.
func RosterVars(company models.CompanySnapshot, scenario models.ScenarioSnapshot, size int) map[string]string {
	return map[string]string{
		"company_name":         company.Name,
		"company_username":     company.Username,
		"company_description":  company.Description,
		"scenario_name":        scenario.Name,
		"scenario_description": scenario.Description,
		"roster_size":          strconv.Itoa(size),
	}
}

func gameVars(game *models.Game) map[string]string {
	return map[string]string{
		"company_name":         game.Company.Name,
		"company_username":     game.Company.Username,
		"company_description":  game.Company.Description,
		"scenario_name":        game.Scenario.Name,
		"scenario_description": game.Scenario.Description,
		"day":                  strconv.Itoa(game.Day),
	}
}

func FormatCharacters(characters []models.Character) string {
	if len(characters) == 0 {
		return "(none)"
	}
	lines := make([]string, len(characters))
	for i, c := range characters {
		lines[i] = fmt.Sprintf("- %s (@%s): %s", c.Name, c.Username, c.Description)
	}
	return strings.Join(lines, "\n")
}

func FormatPosts(posts []models.Post) string {
	if len(posts) == 0 {
		return "(no posts yet)"
	}
	lines := make([]string, len(posts))
	for i, p := range posts {
		lines[i] = fmt.Sprintf("[Day %d] %s (@%s), %d likes: %s", p.Day, p.Creator.Name, p.Creator.Username, p.Likes, p.Text)
	}
	return strings.Join(lines, "\n")
}
