package endpoint

import (
	"strings"

	"github.com/Strob0t/AgentForge/internal/domain/requirement"
)

// Verb classes used by the method selection policy. A prompt is scanned in
// this order: removal verbs win, then whole-replace, then partial-update,
// then side-effecting verbs; read-only verbs yield GET only when the task
// carries at most one identifying parameter. Ambiguity resolves to POST.
var (
	deleteVerbs  = wordSet("delete", "remove", "cleanup", "clear", "purge", "erase")
	replaceVerbs = wordSet("replace", "overwrite", "reset")
	patchVerbs   = wordSet("update", "modify", "edit", "rename", "change")
	writeVerbs   = wordSet(
		"send", "post", "notify", "create", "add", "make", "publish",
		"write", "message", "email", "schedule", "sync", "upload", "share",
	)
	readVerbs = wordSet(
		"get", "fetch", "list", "read", "retrieve", "show", "find",
		"search", "summarize", "check", "count", "analyze", "report",
	)
)

var stopwords = wordSet(
	"a", "an", "the", "all", "and", "or", "of", "for", "to", "in", "on",
	"from", "with", "them", "then", "it", "its", "my", "me", "their",
	"that", "this", "old", "new", "each", "every", "when", "into", "by",
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// DesignFromRecord deterministically turns a requirement record into one
// endpoint design. Same record in, same design out: no randomness and no
// model call.
func DesignFromRecord(rec *requirement.Record) Design {
	words := tokenize(rec.RawPrompt + " " + rec.TaskDescription)
	method := selectMethod(words, rec.Parameters)
	slug := slugify(words, method, rec.Services)

	d := Design{
		Method:              method,
		Path:                "/" + slug,
		OperationID:         strings.ReplaceAll(slug, "-", "_"),
		Summary:             summarize(rec),
		ResponseDescription: "Result of the operation",
	}
	if rec.TaskDescription != "" {
		first := firstLine(rec.TaskDescription)
		if len(first) > 80 {
			first = first[:80]
		}
		d.ResponseDescription = "Result for: " + first
	}

	for _, p := range rec.Parameters {
		param := Param{
			Name:        p.Name,
			Type:        p.Type,
			Required:    p.Required,
			Description: firstNonEmpty(p.Description, p.HowUsed),
		}
		switch p.Location {
		case requirement.LocationPath:
			d.PathParams = append(d.PathParams, param)
			d.Path += "/{" + p.Name + "}"
		case requirement.LocationQuery:
			d.QueryParams = append(d.QueryParams, param)
		default:
			d.BodyParams = append(d.BodyParams, param)
		}
	}

	// Query parameters only make sense on GET/DELETE; for body-carrying
	// methods the modifiers travel in the body instead.
	if method != MethodGet && method != MethodDelete && len(d.QueryParams) > 0 {
		d.BodyParams = append(d.BodyParams, d.QueryParams...)
		d.QueryParams = nil
	}

	return d
}

// selectMethod applies the method policy over the prompt's verbs.
func selectMethod(words []string, params []requirement.Parameter) Method {
	has := func(set map[string]struct{}) bool {
		for _, w := range words {
			if _, ok := set[w]; ok {
				return true
			}
		}
		return false
	}

	switch {
	case has(deleteVerbs):
		return MethodDelete
	case has(replaceVerbs):
		return MethodPut
	case has(patchVerbs):
		if hasUpdateTo(words) {
			return MethodPut
		}
		return MethodPatch
	case has(writeVerbs):
		return MethodPost
	case has(readVerbs):
		if identifyingParams(params) <= 1 {
			return MethodGet
		}
		return MethodPost
	default:
		return MethodPost
	}
}

// hasUpdateTo detects the whole-resource replace phrasing "update X to Y".
func hasUpdateTo(words []string) bool {
	for i, w := range words {
		if w != "update" {
			continue
		}
		for _, rest := range words[i+1:] {
			if rest == "to" {
				return true
			}
		}
	}
	return false
}

func identifyingParams(params []requirement.Parameter) int {
	n := 0
	for _, p := range params {
		if p.Required && p.Location != requirement.LocationBody {
			n++
		}
	}
	return n
}

// slugify derives the path slug from the dominant verb of the selected
// method and up to two salient words that follow it. Service names and
// stopwords are skipped so "/send-summarization" comes out of "send them a
// summarization in Slack". Verb sets are searched in priority order: for a
// POST the side-effecting verb wins over an earlier read verb, which keeps
// the slug aligned with the verb that decided the method.
func slugify(words []string, method Method, services []string) string {
	svc := make(map[string]struct{}, len(services))
	for _, s := range services {
		svc[strings.ToLower(s)] = struct{}{}
	}

	for _, verbSet := range verbsFor(method) {
		for i, w := range words {
			if _, ok := verbSet[w]; !ok {
				continue
			}
			parts := []string{w}
			for _, rest := range words[i+1:] {
				if len(parts) == 3 {
					break
				}
				if _, stop := stopwords[rest]; stop {
					continue
				}
				if _, isSvc := svc[rest]; isSvc {
					continue
				}
				if _, isVerb := verbSet[rest]; isVerb {
					continue
				}
				parts = append(parts, rest)
			}
			return strings.Join(parts, "-")
		}
	}
	return "execute"
}

func verbsFor(method Method) []map[string]struct{} {
	switch method {
	case MethodDelete:
		return []map[string]struct{}{deleteVerbs}
	case MethodPut:
		return []map[string]struct{}{replaceVerbs, patchVerbs}
	case MethodPatch:
		return []map[string]struct{}{patchVerbs}
	case MethodGet:
		return []map[string]struct{}{readVerbs}
	default:
		return []map[string]struct{}{writeVerbs, readVerbs}
	}
}

// tokenize lowercases and splits on non-letter boundaries.
func tokenize(s string) []string {
	s = strings.ToLower(s)
	return strings.FieldsFunc(s, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}

func summarize(rec *requirement.Record) string {
	src := firstNonEmpty(rec.TaskDescription, rec.RawPrompt)
	line := firstLine(src)
	line = strings.TrimSpace(strings.TrimPrefix(line, "Task:"))
	if len(line) > 120 {
		line = line[:120]
	}
	if line == "" {
		return "Execute the workflow"
	}
	return line
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
