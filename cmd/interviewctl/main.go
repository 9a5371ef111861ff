package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/danmuck/briefctl/internal/client"
	"github.com/danmuck/briefctl/internal/interview"
	"github.com/danmuck/briefctl/internal/logging"
	"github.com/danmuck/briefctl/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const (
	msgFinished    = "Entrevista finalizada! (MVP)"
	sessionsLimit  = 10
	requestTimeout = 10 * time.Second
)

// ErrQuit signals caller-intent to leave the chat loop.
var ErrQuit = errors.New("quit")

// API is the backend surface the chat loop needs.
type API interface {
	Health(ctx context.Context) (client.Health, error)
	Next(ctx context.Context, req interview.NextRequest) (interview.NextResponse, error)
	Reset(ctx context.Context, sessionID string) error
	Briefing(ctx context.Context, sessionID string) (string, error)
	Sessions(ctx context.Context, limit int) ([]store.Record, error)
}

type styles struct {
	title     lipgloss.Style
	assistant lipgloss.Style
	notice    lipgloss.Style
	errText   lipgloss.Style
	muted     lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		title:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		assistant: r.NewStyle().Foreground(lipgloss.Color("86")),
		notice:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		errText:   r.NewStyle().Foreground(lipgloss.Color("196")),
		muted:     r.NewStyle().Faint(true),
	}
}

// App is the terminal interview chat.
type App struct {
	reader    *bufio.Reader
	out       io.Writer
	api       API
	newAPI    func(baseURL string) API
	backend   string
	token     string
	sessionID string
	currentID *string
	started   bool
	styles    styles
}

func main() {
	flags := pflag.NewFlagSet("interviewctl", pflag.ExitOnError)
	backend := flags.String("backend", "", "backend base url (default $BACKEND_URL or "+client.DefaultBaseURL+")")
	token := flags.String("token", os.Getenv("BRIEFCTL_API_TOKEN"), "bearer token for the backend")
	_ = flags.Parse(os.Args[1:])

	logging.ConfigureRuntime()
	app := NewApp(os.Stdin, os.Stdout, resolveBackend(*backend), *token)
	if err := app.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("interviewctl stopped")
		os.Exit(1)
	}
}

func resolveBackend(flagValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(client.EnvBackendURL)); v != "" {
		return v
	}
	return client.DefaultBaseURL
}

func NewApp(in io.Reader, out io.Writer, backend string, token string) *App {
	a := &App{
		reader:    bufio.NewReader(in),
		out:       out,
		backend:   strings.TrimRight(backend, "/"),
		token:     token,
		sessionID: uuid.NewString(),
		styles:    newStyles(out),
	}
	a.newAPI = func(baseURL string) API {
		c := client.New(baseURL)
		c.Token = a.token
		return c
	}
	a.api = a.newAPI(a.backend)
	return a
}

// Run drives the chat until /quit or end of input.
func (a *App) Run(ctx context.Context) error {
	fmt.Fprintln(a.out, a.styles.title.Render("Assistente de Requisitos (MVP)"))
	fmt.Fprintln(a.out, a.styles.muted.Render(fmt.Sprintf("backend=%s session=%s  (/help para comandos)", a.backend, a.sessionID)))
	log.Info().Str("backend", a.backend).Str("session_id", a.sessionID).Msg("interviewctl started")

	for {
		if !a.started && a.currentID == nil {
			a.callNext(ctx, nil)
			a.started = true
		}
		line, err := a.promptLine("> ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(a.out)
			return nil
		}
		if err != nil {
			return err
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if err := a.handleCommand(ctx, input); err != nil {
				if errors.Is(err, ErrQuit) {
					return nil
				}
				return err
			}
			continue
		}
		a.callNext(ctx, &input)
	}
}

func (a *App) callNext(ctx context.Context, answer *string) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	resp, err := a.api.Next(ctx, interview.NextRequest{
		SessionID: a.sessionID,
		CurrentID: a.currentID,
		Answer:    answer,
	})
	if err != nil {
		a.printError("Erro ao chamar backend", err)
		return
	}
	fmt.Fprintln(a.out, a.styles.assistant.Render(resp.Message))
	a.currentID = resp.NextID
	if resp.Done {
		a.started = false
		fmt.Fprintln(a.out, a.styles.notice.Render(msgFinished))
	}
}

func (a *App) handleCommand(ctx context.Context, input string) error {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	switch strings.ToLower(cmd) {
	case "/quit", "/exit", "/q":
		return ErrQuit
	case "/help", "/h":
		a.printHelp()
	case "/health":
		h, err := a.api.Health(ctx)
		if err != nil {
			a.printError("Erro", err)
			return nil
		}
		fmt.Fprintln(a.out, a.styles.notice.Render(fmt.Sprintf("OK: status=%s service=%s version=%s", h.Status, h.Service, h.Version)))
	case "/reset":
		if err := a.api.Reset(ctx, a.sessionID); err != nil {
			a.printError("Não consegui resetar no backend", err)
		}
		a.currentID = nil
		a.started = false
	case "/briefing":
		md, err := a.api.Briefing(ctx, a.sessionID)
		if err != nil {
			a.printError("Erro ao gerar briefing", err)
			return nil
		}
		fmt.Fprintln(a.out, md)
	case "/sessions":
		records, err := a.api.Sessions(ctx, sessionsLimit)
		if err != nil {
			a.printError("Erro ao listar sessões", err)
			return nil
		}
		if len(records) == 0 {
			fmt.Fprintln(a.out, a.styles.muted.Render("Nenhuma sessão registrada."))
			return nil
		}
		for _, rec := range records {
			marker := " "
			if rec.SessionID == a.sessionID {
				marker = "*"
			}
			briefed := "-"
			if rec.BriefingMD != nil {
				briefed = "briefing"
			}
			fmt.Fprintf(a.out, "%s %s  %s  %s\n", marker, rec.SessionID, rec.UpdatedAt.Format(time.RFC3339), briefed)
		}
	case "/backend":
		if arg == "" {
			fmt.Fprintln(a.out, a.backend)
			return nil
		}
		a.backend = strings.TrimRight(arg, "/")
		a.api = a.newAPI(a.backend)
		fmt.Fprintln(a.out, a.styles.muted.Render("backend="+a.backend))
	default:
		fmt.Fprintln(a.out, a.styles.errText.Render("Comando desconhecido: "+cmd))
		a.printHelp()
	}
	return nil
}

func (a *App) printHelp() {
	fmt.Fprintln(a.out, strings.Join([]string{
		"/health          testar o backend",
		"/reset           reiniciar a entrevista",
		"/briefing        gerar o briefing da sessão",
		"/sessions        listar sessões registradas",
		"/backend <url>   trocar o backend",
		"/quit            sair",
	}, "\n"))
}

func (a *App) printError(prefix string, err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintln(a.out, a.styles.errText.Render(fmt.Sprintf("%s: HTTP %d", prefix, apiErr.Status)))
		fmt.Fprintln(a.out, strings.TrimSpace(apiErr.Body))
		return
	}
	fmt.Fprintln(a.out, a.styles.errText.Render(fmt.Sprintf("%s: %v", prefix, err)))
}

func (a *App) promptLine(label string) (string, error) {
	if label != "" {
		fmt.Fprint(a.out, label)
	}
	line, err := a.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
