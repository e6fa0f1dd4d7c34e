// Package bot implements the chat command surface: a static route table
// built once at startup from the stored regions and areas, and a dispatcher
// that turns one incoming text into one MarkdownV2 reply.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-corona-bot/internal/report"
	"github.com/tbourn/go-corona-bot/internal/search"
)

// ErrRouteConflict is returned when a token is already registered.
var ErrRouteConflict = errors.New("command already registered")

// Request is one parsed command.
type Request struct {
	ChatID  int64
	Command string
	Args    string
}

// HandlerFunc answers a command with MarkdownV2 text.
type HandlerFunc func(ctx context.Context, req Request) (string, error)

type route struct {
	token   string
	kind    string
	handler HandlerFunc
	writes  bool
}

// Router maps case-folded command tokens to handlers. It is read-only after
// construction and safe for concurrent use.
type Router struct {
	botName   string
	routes    map[string]route
	conflicts []string
	suggest   search.Index
}

// newRouter returns an empty router. botName, when set, restricts
// "/cmd@name" mentions to this bot.
func newRouter(botName string) *Router {
	return &Router{
		botName: strings.TrimPrefix(strings.TrimSpace(botName), "@"),
		routes:  make(map[string]route),
	}
}

// Register adds token. A token that folds onto an existing route is
// rejected with ErrRouteConflict and the first registration stays.
func (r *Router) Register(token, kind string, h HandlerFunc) error {
	key := strings.ToLower(token)
	if key == "" {
		return fmt.Errorf("empty command token for %s", kind)
	}
	if prev, ok := r.routes[key]; ok {
		r.conflicts = append(r.conflicts, token)
		return fmt.Errorf("%w: %q (%s) collides with %q (%s)", ErrRouteConflict, token, kind, prev.token, prev.kind)
	}
	r.routes[key] = route{token: token, kind: kind, handler: h}
	r.suggest = nil
	return nil
}

// Commands returns all registered tokens, sorted.
func (r *Router) Commands() []string {
	out := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		out = append(out, rt.token)
	}
	sort.Strings(out)
	return out
}

// markWrites flags tokens whose handlers change the chat's stored state.
func (r *Router) markWrites(tokens ...string) {
	for _, t := range tokens {
		key := strings.ToLower(t)
		if rt, ok := r.routes[key]; ok {
			rt.writes = true
			r.routes[key] = rt
		}
	}
}

// Writes reports whether text resolves to a command that changes the
// chat's stored state, such as its subscription.
func (r *Router) Writes(text string) bool {
	cmd, _, _, ok := ParseCommand(text)
	if !ok {
		return false
	}
	rt, found := r.routes[strings.ToLower(cmd)]
	return found && rt.writes
}

// Conflicts lists the tokens rejected during registration.
func (r *Router) Conflicts() []string { return append([]string(nil), r.conflicts...) }

// freeze builds the suggestion index once all routes are registered.
func (r *Router) freeze() {
	r.suggest = search.NewIndex(r.Commands())
}

// ParseCommand splits "/cmd@bot args" into its parts. ok is false when text
// is not a command.
func ParseCommand(text string) (cmd, mention, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || len(text) == 1 {
		return "", "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	cmd, mention, _ = strings.Cut(head, "@")
	if cmd == "" {
		return "", "", "", false
	}
	return cmd, mention, strings.TrimSpace(rest), true
}

// Dispatch answers text sent in chatID. It returns "" when the text is not
// a command for this bot. Handler errors are logged and answered with
// report.GenericFailure; they never reach the caller.
func (r *Router) Dispatch(ctx context.Context, chatID int64, text string) string {
	cmd, mention, args, ok := ParseCommand(text)
	if !ok {
		return ""
	}
	if mention != "" && r.botName != "" && !strings.EqualFold(mention, r.botName) {
		return ""
	}

	tr := otel.Tracer("bot/Router")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.String("command", cmd),
			attribute.Int64("chat.id", chatID),
		),
	)
	defer span.End()

	rt, found := r.routes[strings.ToLower(cmd)]
	if !found {
		commands.WithLabelValues("unknown").Inc()
		return r.unknown(cmd)
	}
	out, err := r.call(ctx, rt, Request{ChatID: chatID, Command: rt.token, Args: args})
	if err != nil {
		commands.WithLabelValues("error").Inc()
		span.RecordError(err)
		log.Error().Err(err).Str("command", rt.token).Int64("chat_id", chatID).Msg("command failed")
		return report.GenericFailure
	}
	commands.WithLabelValues(rt.kind).Inc()
	return out
}

func (r *Router) call(ctx context.Context, rt route, req Request) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in /%s: %v", rt.token, rec)
		}
	}()
	return rt.handler(ctx, req)
}

func (r *Router) unknown(cmd string) string {
	idx := r.suggest
	if idx == nil {
		idx = search.NewIndex(r.Commands())
	}
	msg := report.Escape("Unbekannter Befehl /" + cmd + ".")
	hits := idx.TopK(cmd, 3)
	if len(hits) == 0 {
		return msg + "\n" + report.Escape("Eine Übersicht gibt es mit /help.")
	}
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = "/" + h.Term
	}
	return msg + "\n" + report.Escape("Meintest du "+strings.Join(names, ", ")+"?")
}
