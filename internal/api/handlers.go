package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/susu3304/mockinterviewbot/internal/db"
)

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Protected handlers
func (a *API) handleUserGuilds(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	guilds, err := a.getDiscordGuilds(r.Context(), claims.AccessToken)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to get guilds: %v", err), http.StatusBadGateway)
		return
	}

	// Only guilds the bot is running mock interviews in
	filtered := []DiscordGuild{}
	for _, guild := range guilds {
		if _, ok := a.sessions.Lookup(guild.ID); ok {
			filtered = append(filtered, guild)
		}
	}

	writeJSON(w, http.StatusOK, filtered)
}

func (a *API) handleGuildSession(w http.ResponseWriter, r *http.Request) {
	guildID, ok := a.authorizeGuild(w, r)
	if !ok {
		return
	}

	snap, found := a.sessions.Lookup(strconv.FormatInt(guildID, 10))
	if !found {
		http.Error(w, "guild not registered", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) handleGuildHistory(w http.ResponseWriter, r *http.Request) {
	guildID, ok := a.authorizeGuild(w, r)
	if !ok {
		return
	}

	limit := db.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, db.MaxHistoryLimit)
	}

	cycles, err := a.history.ListCycles(r.Context(), guildID, limit)
	if err != nil {
		log.Printf("api: failed to list history for guild %d: %v", guildID, err)
		http.Error(w, "failed to list history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cycles)
}

// authorizeGuild parses {guild_id} and checks the caller is a member. It
// writes the error response itself.
func (a *API) authorizeGuild(w http.ResponseWriter, r *http.Request) (int64, bool) {
	guildID, err := strconv.ParseInt(mux.Vars(r)["guild_id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid guild_id", http.StatusBadRequest)
		return 0, false
	}

	claims := claimsFrom(r.Context())
	if !a.userHasGuildAccess(r, claims.AccessToken, guildID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return 0, false
	}
	return guildID, true
}

func (a *API) userHasGuildAccess(r *http.Request, accessToken string, guildID int64) bool {
	guilds, err := a.getDiscordGuilds(r.Context(), accessToken)
	if err != nil {
		return false
	}

	for _, guild := range guilds {
		id, _ := strconv.ParseInt(guild.ID, 10, 64)
		if id == guildID {
			return true
		}
	}
	return false
}
