// services/discord_client.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const defaultDiscordAPIBaseURL = "https://discord.com/api/v10"

// MemberUser is the nested user object on a guild member payload.
type MemberUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name,omitempty"`
}

// Member matches the JSON shape of a guild member from the Discord API.
type Member struct {
	User     MemberUser      `json:"user"`
	Nick     string          `json:"nick,omitempty"`
	Roles    []string        `json:"roles"`
	Presence *MemberPresence `json:"presence,omitempty"` // only embedded on some fetch paths
}

// MemberPresence carries the live status when the API embeds it.
type MemberPresence struct {
	Status string `json:"status"` // online, idle, dnd, offline, invisible
}

// PresenceStatus returns the embedded status, or "" when the payload had none.
func (m Member) PresenceStatus() string {
	if m.Presence == nil {
		return ""
	}
	return m.Presence.Status
}

// Role matches the JSON shape of a guild role.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DiscordClient talks to the Discord REST API with a bot token for a single
// configured guild.
type DiscordClient struct {
	BaseURL string
	Token   string
	GuildID string
	Client  *http.Client
}

// NewDiscordClient validates the bot credential and guild id up front. A
// missing credential is a deployment error, so the error propagates instead of
// degrading like runtime API failures do.
func NewDiscordClient(baseURL, botToken, guildID string) (*DiscordClient, error) {
	if botToken == "" {
		return nil, fmt.Errorf("discord bot token is required")
	}
	if guildID == "" {
		return nil, fmt.Errorf("discord guild id is required")
	}
	if baseURL == "" {
		baseURL = defaultDiscordAPIBaseURL
	}
	return &DiscordClient{
		BaseURL: baseURL,
		Token:   botToken,
		GuildID: guildID,
		Client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// ListGuildMembers fetches the full member roster, paginating on the member id
// cursor until the API returns a short page.
func (c *DiscordClient) ListGuildMembers(ctx context.Context) ([]Member, error) {
	const pageSize = 1000

	var members []Member
	after := ""
	for {
		endpoint := fmt.Sprintf("%s/guilds/%s/members", c.BaseURL, c.GuildID)
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid discord API URL %q: %w", endpoint, err)
		}
		q := u.Query()
		q.Set("limit", fmt.Sprintf("%d", pageSize))
		if after != "" {
			q.Set("after", after)
		}
		u.RawQuery = q.Encode()

		var page []Member
		if err := c.getJSON(ctx, u.String(), &page); err != nil {
			return nil, fmt.Errorf("failed to list guild members: %w", err)
		}
		members = append(members, page...)
		if len(page) < pageSize {
			break
		}
		after = page[len(page)-1].User.ID
	}

	log.Printf("[DISCORD] Fetched %d member(s) for guild %s", len(members), c.GuildID)
	return members, nil
}

// ListGuildRoles fetches every role and returns them keyed by role id, which
// is how the presence resolver wants them.
func (c *DiscordClient) ListGuildRoles(ctx context.Context) (map[string]Role, error) {
	endpoint := fmt.Sprintf("%s/guilds/%s/roles", c.BaseURL, c.GuildID)

	var roles []Role
	if err := c.getJSON(ctx, endpoint, &roles); err != nil {
		return nil, fmt.Errorf("failed to list guild roles: %w", err)
	}

	byID := make(map[string]Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}
	return byID, nil
}

// FetchMemberPresence is the per-member fallback when the roster payload had
// no presence embedded. Returns "" when the API reports nothing.
func (c *DiscordClient) FetchMemberPresence(ctx context.Context, memberID string) (string, error) {
	endpoint := fmt.Sprintf("%s/guilds/%s/members/%s", c.BaseURL, c.GuildID, memberID)

	var member Member
	if err := c.getJSON(ctx, endpoint, &member); err != nil {
		return "", fmt.Errorf("failed to fetch member presence: %w", err)
	}
	return member.PresenceStatus(), nil
}

func (c *DiscordClient) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", rawURL, err)
	}
	req.Header.Set("Authorization", "Bot "+c.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("discord API request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[DISCORD] %s returned %d: %s", rawURL, resp.StatusCode, string(body))
		return fmt.Errorf("discord API non-200 response: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode discord API response: %w", err)
	}
	return nil
}
