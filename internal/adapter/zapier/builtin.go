package zapier

import (
	"sort"
	"strings"

	"github.com/Strob0t/AgentForge/internal/domain/action"
)

// readActions and writeActions mirror the action names Zapier exposes for
// the commonly integrated services. They back the built-in catalog used
// when no API key is configured.
var readActions = map[string][]string{
	"Trello":        {"Get Cards", "Get Board", "Get Lists", "Get Card", "Get Comments"},
	"Asana":         {"Get Tasks", "Get Project", "Get Task", "Get Projects"},
	"Jira":          {"Get Issues", "Get Issue", "Get Projects", "Get Project"},
	"GitHub":        {"Get Issues", "Get Pull Requests", "Get Repository", "Get Commits"},
	"GitLab":        {"Get Issues", "Get Merge Requests", "Get Repository"},
	"Salesforce":    {"Get Lead", "Get Contact", "Get Opportunity", "Search Records"},
	"HubSpot":       {"Get Contact", "Get Deal", "Get Company", "Search Contacts"},
	"Google Sheets": {"Get Spreadsheet", "Get Worksheet", "Get Rows"},
	"Slack":         {"Get Channel", "Get User", "Get Message"},
	"Discord":       {"Get Channel", "Get Message"},
	"Gmail":         {"Get Emails", "Search Emails"},
}

var writeActions = map[string][]string{
	"Slack":         {"Send Channel Message", "Send Direct Message"},
	"Discord":       {"Send Channel Message", "Send Direct Message"},
	"Gmail":         {"Send Email"},
	"Trello":        {"Create Card", "Update Card", "Add Comment"},
	"Asana":         {"Create Task", "Update Task", "Add Comment"},
	"Jira":          {"Create Issue", "Update Issue", "Add Comment"},
	"GitHub":        {"Create Issue", "Create Comment", "Create Pull Request"},
	"GitLab":        {"Create Issue", "Create Merge Request", "Add Comment"},
	"Salesforce":    {"Create Lead", "Create Contact", "Update Record"},
	"HubSpot":       {"Create Contact", "Create Deal", "Update Contact"},
	"Google Sheets": {"Create Row", "Update Row", "Append Row"},
}

// BuiltinCatalog returns the static catalog in a stable order: services
// sorted, reads before writes within a service.
func BuiltinCatalog() []action.CatalogEntry {
	services := make([]string, 0, len(readActions))
	seen := make(map[string]struct{})
	for svc := range readActions {
		services = append(services, svc)
		seen[svc] = struct{}{}
	}
	for svc := range writeActions {
		if _, ok := seen[svc]; !ok {
			services = append(services, svc)
		}
	}
	sort.Strings(services)

	var entries []action.CatalogEntry
	for _, svc := range services {
		for _, name := range readActions[svc] {
			entries = append(entries, newBuiltin(svc, name))
		}
		for _, name := range writeActions[svc] {
			entries = append(entries, newBuiltin(svc, name))
		}
	}
	return entries
}

func newBuiltin(service, name string) action.CatalogEntry {
	return action.CatalogEntry{
		ID:          actionID(service, name),
		Service:     service,
		Name:        name,
		Description: service + ": " + name,
		ArgSchema:   builtinArgSchema(name),
	}
}

// actionID builds a stable identifier like "trello.get_cards".
func actionID(service, name string) string {
	norm := func(s string) string {
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, " ", "_")
	}
	return norm(service) + "." + norm(name)
}

// builtinArgSchema gives each static action a minimal argument schema so
// generated agents can validate tool calls.
func builtinArgSchema(name string) map[string]string {
	switch {
	case strings.HasPrefix(name, "Get "), strings.HasPrefix(name, "Search "):
		return map[string]string{"query": "string"}
	case strings.HasPrefix(name, "Send "):
		return map[string]string{"recipient": "string", "message": "string"}
	default:
		return map[string]string{"title": "string", "body": "string"}
	}
}
