package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// maxChat is the longest single chat message the platform accepts.
const maxChat = 240

// Ask forwards a question to the completion service and relays the answer.
// A service failure degrades to the configured fallback line.
func Ask(ctx context.Context, env *Env, inv *Invocation) error {
	q := strings.TrimSpace(inv.Text)
	if q == "" {
		return usage("ask <question>")
	}
	if env.AI == nil {
		return errors.New("I don't have anyone to ask")
	}
	answer, err := env.AI.Complete(ctx, q)
	if err != nil {
		env.Log.WarnContext(ctx, "completion failed",
			slog.String("user", inv.User.ID),
			slog.Any("err", err),
		)
		answer = env.AIFallback
	}
	for _, chunk := range split(answer, maxChat) {
		env.Reply(ctx, inv, "%s", chunk)
	}
	return nil
}

// Say relays text to public chat in the bot's own voice, regardless of where
// the command arrived.
func Say(ctx context.Context, env *Env, inv *Invocation) error {
	text := strings.TrimSpace(inv.Text)
	if text == "" {
		return usage("say <text>")
	}
	if err := env.Actor.SendChat(ctx, text); err != nil {
		return errors.New("couldn't send that")
	}
	return nil
}

// Recite reads a configured text file and sends it to public chat line by
// line.
func Recite(ctx context.Context, env *Env, inv *Invocation) error {
	if len(inv.Args) == 0 {
		return usage("recite <name>")
	}
	name := strings.ToLower(inv.Args[0])
	path, ok := env.Texts[name]
	if !ok {
		return fmt.Errorf("I don't know a text named %q", name)
	}
	f, err := os.Open(path)
	if err != nil {
		env.Log.ErrorContext(ctx, "recitation text missing",
			slog.String("name", name),
			slog.String("path", path),
			slog.Any("err", err),
		)
		return errors.New("I can't find that text")
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		for _, chunk := range split(line, maxChat) {
			if err := env.Actor.SendChat(ctx, chunk); err != nil {
				return errors.New("couldn't finish reciting")
			}
		}
	}
	if err := sc.Err(); err != nil {
		return errors.New("couldn't finish reciting")
	}
	return nil
}

// split breaks s into chunks of at most n bytes, preferring to break at
// spaces.
func split(s string, n int) []string {
	var out []string
	for len(s) > n {
		cut := strings.LastIndexByte(s[:n], ' ')
		if cut <= 0 {
			cut = n
		}
		out = append(out, strings.TrimSpace(s[:cut]))
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
