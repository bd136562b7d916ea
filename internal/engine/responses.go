package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"brandsim/server/internal/models"
)

// ErrMalformedReply is wrapped by every parse failure of a completion reply.
var ErrMalformedReply = errors.New("malformed completion reply")

var codeFencePattern = regexp.MustCompile("(?s)^```[A-Za-z0-9_-]*\\s*\\n?(.*?)\\n?```$")

// stripCodeFence removes a Markdown code fence wrapped around the whole reply.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if m := codeFencePattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return content
}

// parseLikeEstimate reads {"likes": N}; N may be a number or a numeric string.
// Negative estimates clamp to zero.
func parseLikeEstimate(content string) (int64, error) {
	var reply struct {
		Likes json.RawMessage `json:"likes"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &reply); err != nil {
		return 0, fmt.Errorf("%w: like estimate: %v", ErrMalformedReply, err)
	}
	if len(reply.Likes) == 0 {
		return 0, fmt.Errorf("%w: like estimate has no likes field", ErrMalformedReply)
	}
	likes, err := parseCount(reply.Likes)
	if err != nil {
		return 0, fmt.Errorf("%w: like estimate: %v", ErrMalformedReply, err)
	}
	return likes, nil
}

// characterPost is one reaction in the character posts reply
type characterPost struct {
	Username string
	Content  string
	Likes    int64
}

type rawCharacterPost struct {
	Username string          `json:"username"`
	Content  string          `json:"content"`
	Likes    json.RawMessage `json:"likes"`
}

// parseCharacterPosts accepts a bare array or an object with a posts array.
func parseCharacterPosts(content string) ([]characterPost, error) {
	data := []byte(stripCodeFence(content))

	var raw []rawCharacterPost
	if bytes.HasPrefix(data, []byte("[")) {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: character posts: %v", ErrMalformedReply, err)
		}
	} else {
		var wrapped struct {
			Posts []rawCharacterPost `json:"posts"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: character posts: %v", ErrMalformedReply, err)
		}
		if wrapped.Posts == nil {
			return nil, fmt.Errorf("%w: character posts reply has no posts array", ErrMalformedReply)
		}
		raw = wrapped.Posts
	}

	posts := make([]characterPost, 0, len(raw))
	for _, r := range raw {
		var likes int64
		if len(r.Likes) > 0 {
			n, err := parseCount(r.Likes)
			if err != nil {
				return nil, fmt.Errorf("%w: character post likes: %v", ErrMalformedReply, err)
			}
			likes = n
		}
		posts = append(posts, characterPost{
			Username: strings.TrimPrefix(strings.TrimSpace(r.Username), "@"),
			Content:  r.Content,
			Likes:    likes,
		})
	}
	return posts, nil
}

// parseRoster accepts {"characters": [...]} or a bare array and needs at least one entry.
func parseRoster(content string) ([]models.Character, error) {
	data := []byte(stripCodeFence(content))

	var characters []models.Character
	if bytes.HasPrefix(data, []byte("[")) {
		if err := json.Unmarshal(data, &characters); err != nil {
			return nil, fmt.Errorf("%w: roster: %v", ErrMalformedReply, err)
		}
	} else {
		var wrapped struct {
			Characters []models.Character `json:"characters"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: roster: %v", ErrMalformedReply, err)
		}
		characters = wrapped.Characters
	}

	roster := make([]models.Character, 0, len(characters))
	for _, c := range characters {
		c.Username = strings.TrimPrefix(strings.TrimSpace(c.Username), "@")
		if c.Username == "" || strings.TrimSpace(c.Name) == "" {
			continue
		}
		roster = append(roster, c)
	}
	if len(roster) == 0 {
		return nil, fmt.Errorf("%w: roster has no characters", ErrMalformedReply)
	}
	return roster, nil
}

func parseCount(raw json.RawMessage) (int64, error) {
	var value float64
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		f, err := num.Float64()
		if err != nil {
			return 0, err
		}
		value = f
	} else {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("likes is neither a number nor a string")
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
		if err != nil {
			return 0, fmt.Errorf("likes %q is not numeric", s)
		}
		value = f
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("likes is not finite")
	}
	if value < 0 {
		return 0, nil
	}
	if value > math.MaxInt64/2 {
		value = math.MaxInt64 / 2
	}
	return int64(math.Round(value)), nil
}
