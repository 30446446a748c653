package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/joelkehle/grant-agency/internal/llm"
	"github.com/joelkehle/grant-agency/internal/profile"
	"github.com/joelkehle/grant-agency/internal/workspace"
)

const (
	// maxChatLength bounds one user message; longer inputs risk upstream
	// timeouts.
	maxChatLength = 15000

	chatMaxTokens       = 2000
	extractionMaxTokens = 4000
)

type chatRequest struct {
	ConversationID string     `json:"conversationId,omitempty"`
	Messages       []llm.Turn `json:"messages"`
}

type chatResponse struct {
	ConversationID string   `json:"conversationId"`
	Content        string   `json:"content"`
	HTML           string   `json:"html,omitempty"`
	Intent         Intent   `json:"intent"`
	ProfileUpdated bool     `json:"profileUpdated"`
	ActiveProfile  *orgCard `json:"activeProfile,omitempty"`
}

// orgCard is the subset of the profile the UI shows next to a reply.
type orgCard struct {
	Name       string   `json:"name"`
	Location   string   `json:"location,omitempty"`
	FocusAreas []string `json:"focusAreas,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}
	latest := req.Messages[len(req.Messages)-1]
	if latest.Role != "user" {
		writeError(w, http.StatusBadRequest, "last message must be from the user")
		return
	}
	if len(latest.Content) > maxChatLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("message exceeds %d characters", maxChatLength))
		return
	}

	sess := s.sessions.get(req.ConversationID)
	s.ensureProfile(r.Context(), sess)

	intent := DetectIntent(latest.Content)
	s.audit(r.Context(), sess.ConversationID, "user", latest.Content, intent, false)

	var content string
	var profileUpdated bool
	switch intent {
	case IntentFindGrants:
		content = s.runDiscovery(r.Context())
	case IntentShowGrants:
		content = s.listGrants(r.Context())
	case IntentStatusUpdate:
		content = s.applyStatusRequest(r.Context(), latest.Content)
	default:
		content, profileUpdated = s.chatTurn(r.Context(), sess, req.Messages)
	}

	s.audit(r.Context(), sess.ConversationID, "assistant", content, intent, profileUpdated)

	resp := chatResponse{
		ConversationID: sess.ConversationID,
		Content:        content,
		HTML:           s.renderHTML(content),
		Intent:         intent,
		ProfileUpdated: profileUpdated,
	}
	if sess.Profile != nil {
		resp.ActiveProfile = &orgCard{
			Name:       sess.Profile.ProfileName,
			Location:   sess.Profile.Location,
			FocusAreas: sess.Profile.FocusAreas,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ensureProfile lazily loads the active profile into the session. A fetch
// failure is logged and retried on the next turn; the turn proceeds without
// organization context.
func (s *Server) ensureProfile(ctx context.Context, sess *session) {
	if sess.ProfileLoaded {
		return
	}
	p, ok, err := s.profiles.FetchActiveProfile(ctx)
	if err != nil {
		log.Printf("assistant: active profile fetch failed err=%v", err)
		return
	}
	sess.ProfileLoaded = true
	if ok {
		sess.Profile = &p
	}
}

func (s *Server) audit(ctx context.Context, conversationID, role, content string, intent Intent, profileUpdated bool) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordChatTurn(ctx, conversationID, role, content, string(intent), profileUpdated); err != nil {
		log.Printf("assistant: audit record failed err=%v", err)
	}
}

func (s *Server) runDiscovery(ctx context.Context) string {
	if s.discoverer == nil {
		return "Grant discovery is not configured on this deployment."
	}
	res, err := s.discoverer.Run(ctx)
	if err != nil {
		log.Printf("assistant: discovery failed err=%v", err)
		return "I encountered an error while searching for grants. Please try again or let me know if you'd like help in a different way."
	}
	if s.recorder != nil {
		if err := s.recorder.RecordRun(ctx, res); err != nil {
			log.Printf("assistant: run record failed run=%s err=%v", res.RunID, err)
		}
	}
	return res.ReportMarkdown
}

func (s *Server) listGrants(ctx context.Context) string {
	grants, err := s.grants.QueryGrants(ctx, "", 20)
	if err != nil {
		log.Printf("assistant: grant listing failed err=%v", err)
		return "I had trouble accessing your grant database. Please try again."
	}
	if len(grants) == 0 {
		return "You don't have any grants saved yet. Try saying **'Find grants'** to discover opportunities for your organization!"
	}

	now := s.now()
	var b strings.Builder
	fmt.Fprintf(&b, "# Your Grant Database\n\nHere are your saved grants (%d total):\n\n", len(grants))
	for _, g := range grants {
		icon := "📅"
		switch g.UrgencyAt(now) {
		case "urgent":
			icon = "🚨 URGENT"
		case "soon":
			icon = "⏰ SOON"
		}
		fmt.Fprintf(&b, "%s **%s** - %s\n", icon, g.GrantName, g.Amount)
		fmt.Fprintf(&b, "   • **Status:** %s\n", g.Status)
		if g.Funder != "" {
			fmt.Fprintf(&b, "   • **Funder:** %s\n", g.Funder)
		}
		if g.Deadline != "" {
			fmt.Fprintf(&b, "   • **Deadline:** %s\n", g.Deadline)
		}
		if g.RelevanceScore > 0 {
			fmt.Fprintf(&b, "   • **Relevance:** %d/100\n", g.RelevanceScore)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n**Commands you can use:**\n- \"Mark [grant name] as applied\" - Update grant status\n- \"Find new grants\" - Search for more opportunities\n- \"Show urgent grants only\" - Filter by deadline")
	return b.String()
}

// applyStatusRequest resolves "mark <name> as <status>" against the stored
// grants. Ambiguous or unmatched names get guidance instead of a write.
func (s *Server) applyStatusRequest(ctx context.Context, message string) string {
	name, status := parseStatusRequest(message)
	if name == "" || status == "" {
		return "I'd love to help update your grant status! However, I need you to be more specific about which grant you want to update.\n\n**Try saying something like:**\n- \"Update the Community Education Grant to Applied status\"\n- \"Mark the Youth Program Initiative as Interested\"\n\nOr you can **show your grants first** by saying \"Show my grants\" and then tell me which one to update."
	}
	grants, err := s.grants.QueryGrants(ctx, "", 100)
	if err != nil {
		log.Printf("assistant: grant lookup failed err=%v", err)
		return "I had trouble accessing your grant database. Please try again."
	}
	var matches []workspace.StoredGrant
	lowerName := strings.ToLower(name)
	for _, g := range grants {
		if strings.Contains(strings.ToLower(g.GrantName), lowerName) {
			matches = append(matches, g)
		}
	}
	switch len(matches) {
	case 0:
		return fmt.Sprintf("I couldn't find a grant matching %q in your database. Say \"Show my grants\" to see what's saved.", name)
	case 1:
		g := matches[0]
		if err := s.grants.UpdateGrantStatus(ctx, g.ID, status); err != nil {
			log.Printf("assistant: status update failed grant=%s err=%v", g.ID, err)
			return "I had trouble updating that grant's status. Please try again."
		}
		return fmt.Sprintf("✅ Done! **%s** is now marked as **%s**.", g.GrantName, status)
	default:
		names := make([]string, 0, len(matches))
		for _, g := range matches {
			names = append(names, "- "+g.GrantName)
		}
		return fmt.Sprintf("%q matches more than one grant:\n%s\n\nWhich one did you mean?", name, strings.Join(names, "\n"))
	}
}

// chatTurn is the open conversation path: opportunistic profile extraction
// and merge, then a context-enriched completion.
func (s *Server) chatTurn(ctx context.Context, sess *session, messages []llm.Turn) (string, bool) {
	latest := messages[len(messages)-1]
	profileUpdated := false
	updateSummary := ""

	if contexts := DetectProfileContexts(latest.Content); len(contexts) > 0 {
		profileUpdated, updateSummary = s.extractAndMerge(ctx, sess, latest.Content, contexts)
	}

	content, err := s.caller.GenerateChat(ctx, buildSystemPrompt(sess.Profile, profileUpdated), messages, chatMaxTokens)
	if err != nil {
		log.Printf("assistant: chat completion failed err=%v", err)
		return "I hit a problem generating a response just now. Please try again in a moment.", profileUpdated
	}
	if profileUpdated && updateSummary != "" {
		content += updateSummary
	}
	return content, profileUpdated
}

func (s *Server) extractAndMerge(ctx context.Context, sess *session, message string, contexts []string) (bool, string) {
	existing := map[string]profile.FieldValue{}
	if sess.Profile != nil {
		existing = sess.Profile.FieldValues()
	}

	raw, err := s.caller.Generate(ctx, "", profile.BuildExtractionPrompt(message, contexts, existing), extractionMaxTokens)
	if err != nil {
		log.Printf("assistant: profile extraction failed err=%v", err)
		return false, ""
	}
	updates := profile.ParseExtraction(raw, s.tiers)
	if updates == nil {
		return false, ""
	}

	result := s.engine.Apply(ctx, existing, updates)
	for _, warning := range result.Warnings {
		log.Printf("assistant: merge warning conversation=%s %s", sess.ConversationID, warning)
	}
	if len(result.Committed) == 0 {
		return false, ""
	}
	if sess.Profile == nil || sess.Profile.ID == "" {
		log.Printf("assistant: extracted %d field(s) but no active profile to update", len(result.Committed))
		return false, ""
	}
	if err := s.profiles.UpdateProfileFields(ctx, sess.Profile.ID, workspace.UpdatePayload(result.Committed)); err != nil {
		log.Printf("assistant: profile update failed id=%s err=%v", sess.Profile.ID, err)
		return false, ""
	}
	sess.Profile.ApplyCommitted(result.Committed)
	return true, buildUpdateSummary(result.Committed)
}

// summaryOrder fixes the presentation order of saved fields.
var summaryOrder = []struct {
	field string
	label string
}{
	{profile.FieldLeadership, "Leadership"},
	{profile.FieldWebsite, "Website"},
	{profile.FieldLocation, "Location"},
	{profile.FieldMissionStatement, "Mission"},
	{profile.FieldUniqueQualifications, "Qualifications"},
	{profile.FieldProgramDetails, "Programs"},
	{profile.FieldFocusAreas, "Focus Areas"},
	{profile.FieldTargetPopulation, "Target Population"},
	{profile.FieldTeamSize, "Team Size"},
	{profile.FieldYearFounded, "Year Founded"},
	{profile.FieldBudgetRange, "Budget Range"},
	{profile.FieldLegalStructure, "Legal Structure"},
	{profile.FieldLegalName, "Legal Name"},
}

func buildUpdateSummary(committed map[string]profile.FieldValue) string {
	var updates []string
	for _, entry := range summaryOrder {
		v, ok := committed[entry.field]
		if !ok {
			continue
		}
		var text string
		switch v.Kind {
		case profile.KindList:
			text = strings.Join(v.List, ", ")
		case profile.KindNumber:
			text = fmt.Sprintf("%d", v.Number)
		default:
			text = v.Text
		}
		if len(text) > 100 {
			text = clipRunes(text, 100) + "..."
		}
		updates = append(updates, fmt.Sprintf("%s: %s", entry.label, text))
	}
	if len(updates) == 0 {
		return ""
	}
	return "\n\n✅ **Profile Updated!** I've saved the following to your workspace database:\n- " + strings.Join(updates, "\n- ")
}

// clipRunes shortens s to at most n bytes without splitting a rune.
func clipRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
