package chatrunner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	input "github.com/tcnksm/go-input"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/config"
	"github.com/go-go-golems/kbchat/pkg/dispatch"
	"github.com/go-go-golems/kbchat/pkg/events"
	"github.com/go-go-golems/kbchat/pkg/navigator"
	"github.com/go-go-golems/kbchat/pkg/transcript"
	"github.com/go-go-golems/kbchat/pkg/ui"
)

// RunMode defines the execution mode for the chat session.
type RunMode string

const (
	// RunModeChat runs the full-screen terminal UI.
	RunModeChat RunMode = "chat"
	// RunModeLine reads messages line by line and prints events as text.
	RunModeLine RunMode = "line"
	// RunModeBlocking sends a single message and prints the reply.
	RunModeBlocking RunMode = "blocking"
)

// ChatSession holds the validated configuration and runs one front end.
// It's typically created by the ChatBuilder.
type ChatSession struct {
	ctx            context.Context
	cfg            *config.Config
	client         *api.Client
	bus            *events.Bus
	programOptions []tea.ProgramOption
	mode           RunMode
	target         api.ConversationID
	resumeLatest   bool
	message        string
	inputReader    io.Reader
	outputWriter   io.Writer
	errorWriter    io.Writer
	width          int
}

// ErrNotDelivered is returned by blocking mode when the message did not get
// an assistant reply.
var ErrNotDelivered = errors.New("message not delivered")

// Run executes the chat session based on its configured mode.
func (cs *ChatSession) Run() error {
	switch cs.mode {
	case RunModeChat:
		return cs.runChatInternal()
	case RunModeLine:
		return cs.runLineInternal()
	case RunModeBlocking:
		return cs.runBlockingInternal()
	default:
		return errors.Errorf("unknown run mode: %v", cs.mode)
	}
}

func (cs *ChatSession) newBus() (*events.Bus, error) {
	if cs.bus != nil {
		return cs.bus, nil
	}
	bus, err := events.NewBus(events.WithRedis(cs.cfg.Redis))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create event bus")
	}
	return bus, nil
}

// runWithBus runs the bus next to body and tears both down when either
// finishes. body starts once all handlers are subscribed.
func (cs *ChatSession) runWithBus(bus *events.Bus, body func(ctx context.Context) error) error {
	eg, childCtx := errgroup.WithContext(cs.ctx)
	childCtx, cancel := context.WithCancel(childCtx)
	defer cancel()

	eg.Go(func() error {
		defer cancel()
		log.Debug().Str("component", "chatrunner").Msg("starting event bus")
		err := bus.Run(childCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	eg.Go(func() error {
		defer cancel()
		select {
		case <-bus.Running():
		case <-childCtx.Done():
			return nil
		}
		log.Debug().Str("component", "chatrunner").Msg("event bus running")
		return body(childCtx)
	})

	err := eg.Wait()
	if cerr := bus.Close(); cerr != nil {
		log.Debug().Err(cerr).Msg("closing event bus")
	}
	if errors.Is(err, context.Canceled) && cs.ctx.Err() == context.Canceled {
		return nil
	}
	return err
}

// runChatInternal handles the terminal UI mode.
func (cs *ChatSession) runChatInternal() error {
	bus, err := cs.newBus()
	if err != nil {
		return err
	}

	bridge := ui.NewBridge()
	comps := NewComponents(cs.cfg, cs.client, bus, bridge, WithHistoryRefreshOnSend())

	model := ui.NewModel(cs.ctx, ui.Deps{
		Sender:     comps.Dispatcher,
		Resetter:   comps.Reset,
		Opener:     comps.Navigator,
		History:    comps.History,
		Transcript: comps.Transcript,
		Banners:    comps.Banners,
		Startup: func(ctx context.Context) error {
			return comps.Start(ctx, cs.target, cs.resumeLatest)
		},
	}, cs.cfg)
	p := tea.NewProgram(model, cs.programOptions...)
	bridge.Attach(p)

	log.Debug().Str("component", "chatrunner").Msg("adding UI event handler")
	if err := bus.AddHandler("ui", ui.ForwardFunc(p)); err != nil {
		return errors.Wrap(err, "failed to add ui handler")
	}

	return cs.runWithBus(bus, func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			p.Quit()
		}()
		log.Debug().Str("component", "chatrunner").Msg("starting Bubble Tea program")
		_, runErr := p.Run()
		log.Debug().Err(runErr).Str("component", "chatrunner").Msg("Bubble Tea program finished")
		if errors.Is(runErr, tea.ErrProgramKilled) {
			return nil
		}
		return runErr
	})
}

// runLineInternal reads one message per line. Lines starting with a slash
// are commands: /new, /open <id|url>, /list and /quit.
func (cs *ChatSession) runLineInternal() error {
	bus, err := cs.newBus()
	if err != nil {
		return err
	}

	printer := ui.NewPlainPrinter(cs.outputWriter, cs.width)
	if err := bus.AddHandler("plain", printer.Handle); err != nil {
		return errors.Wrap(err, "failed to add plain handler")
	}
	comps := NewComponents(cs.cfg, cs.client, bus, ui.Notifier{Sink: bus}, WithHistoryRefreshOnSend())

	return cs.runWithBus(bus, func(ctx context.Context) error {
		if err := comps.Start(ctx, cs.target, cs.resumeLatest); err != nil {
			log.Warn().Err(err).Msg("could not open initial conversation")
		}

		scanner := bufio.NewScanner(cs.inputReader)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return nil
			}
			quit, err := cs.handleLine(ctx, comps, scanner.Text())
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
		return errors.Wrap(scanner.Err(), "read input")
	})
}

func (cs *ChatSession) handleLine(ctx context.Context, comps *Components, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		comps.Dispatcher.Send(ctx, line)
		return false, nil
	}

	fields := strings.Fields(trimmed)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/new":
		comps.Reset.ResetSession()
	case "/open":
		if len(fields) < 2 {
			_, err := fmt.Fprintln(cs.outputWriter, "usage: /open <conversation id or url>")
			return false, err
		}
		id, err := navigator.ParseTarget(fields[1])
		if err != nil {
			_, werr := fmt.Fprintf(cs.outputWriter, "! %s\n", err)
			return false, werr
		}
		if err := comps.Navigator.Open(ctx, id); err != nil {
			log.Debug().Err(err).Msg("open failed")
		}
	case "/list":
		if err := comps.History.Refresh(ctx); err != nil {
			_, werr := fmt.Fprintf(cs.outputWriter, "! %s\n", api.Reason(err))
			return false, werr
		}
		for _, e := range comps.History.Entries() {
			marker := " "
			if e.Active {
				marker = "*"
			}
			if _, err := fmt.Fprintf(cs.outputWriter, "%s %s\t%s\n", marker, e.ID, e.Title); err != nil {
				return false, err
			}
		}
	default:
		_, err := fmt.Fprintf(cs.outputWriter, "unknown command %s (try /new, /open, /list, /quit)\n", fields[0])
		return false, err
	}
	return false, nil
}

// runBlockingInternal sends one message without an event bus and prints the
// last assistant turn.
func (cs *ChatSession) runBlockingInternal() error {
	banners := bannerPrinter{w: cs.errorWriter}
	var opts []ComponentsOption
	if !cs.target.IsZero() {
		opts = append(opts, WithInitialConversation(cs.target))
	}
	comps := NewComponents(cs.cfg, cs.client, banners, nil, opts...)

	outcome := comps.Dispatcher.Send(cs.ctx, cs.message)
	log.Debug().Str("outcome", outcome.String()).Msg("blocking send finished")

	switch outcome {
	case dispatch.OutcomeIgnored:
		return errors.New("empty message")
	case dispatch.OutcomeAborted:
		return errors.Wrap(ErrNotDelivered, "no conversation")
	}

	reply, ok := lastAssistantTurn(comps.Transcript.Turns())
	if ok {
		if _, err := fmt.Fprintln(cs.outputWriter, reply.Content); err != nil {
			return errors.Wrap(err, "failed to write output")
		}
	}
	if id := comps.Session.CurrentID(); !id.IsZero() {
		_, _ = fmt.Fprintf(cs.errorWriter, "conversation: %s\n", navigator.ConversationURL(cs.client.BaseURL(), id))
	}
	if outcome != dispatch.OutcomeDelivered {
		return ErrNotDelivered
	}
	return nil
}

func lastAssistantTurn(turns []transcript.Turn) (transcript.Turn, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == transcript.RoleAssistant {
			return turns[i], true
		}
	}
	return transcript.Turn{}, false
}

// bannerPrinter prints error banners; blocking mode has nowhere else to show
// them.
type bannerPrinter struct {
	w io.Writer
}

func (b bannerPrinter) Publish(e events.Event) error {
	if e.Type != events.EventBannerShown {
		return nil
	}
	_, err := fmt.Fprintf(b.w, "error: %s\n", e.Message)
	return err
}

// --- ChatBuilder ---

// ChatBuilder provides a fluent API for configuring and running a chat session.
type ChatBuilder struct {
	err            error // To collect errors during build steps
	ctx            context.Context
	cfg            *config.Config
	client         *api.Client
	bus            *events.Bus
	programOptions []tea.ProgramOption
	mode           RunMode
	target         api.ConversationID
	resumeLatest   bool
	message        string
	inputReader    io.Reader
	outputWriter   io.Writer
	errorWriter    io.Writer
	width          int
}

// NewChatBuilder creates a new builder with default settings.
func NewChatBuilder() *ChatBuilder {
	return &ChatBuilder{
		ctx:            context.Background(),
		programOptions: []tea.ProgramOption{tea.WithAltScreen()},
		inputReader:    os.Stdin,
		outputWriter:   os.Stdout,
		errorWriter:    os.Stderr,
		mode:           RunModeChat,
	}
}

func (b *ChatBuilder) WithContext(ctx context.Context) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if ctx == nil {
		b.err = errors.New("context cannot be nil")
		return b
	}
	b.ctx = ctx
	return b
}

// WithConfig sets the client configuration. (Required)
func (b *ChatBuilder) WithConfig(cfg *config.Config) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if cfg == nil {
		b.err = errors.New("config cannot be nil")
		return b
	}
	b.cfg = cfg
	return b
}

// WithClient sets the API client. (Required)
func (b *ChatBuilder) WithClient(client *api.Client) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if client == nil {
		b.err = errors.New("client cannot be nil")
		return b
	}
	b.client = client
	return b
}

// WithExternalBus provides an existing Bus instance to use. If not provided,
// one is created from the redis settings of the config.
func (b *ChatBuilder) WithExternalBus(bus *events.Bus) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.bus = bus
	return b
}

func (b *ChatBuilder) WithProgramOptions(opts ...tea.ProgramOption) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.programOptions = append(b.programOptions, opts...)
	return b
}

// WithMode sets the execution mode (chat, line, blocking).
func (b *ChatBuilder) WithMode(mode RunMode) *ChatBuilder {
	if b.err != nil {
		return b
	}
	switch mode {
	case RunModeChat, RunModeLine, RunModeBlocking:
		b.mode = mode
	default:
		b.err = errors.Errorf("invalid run mode: %s", mode)
	}
	return b
}

// WithConversation starts in an existing conversation.
func (b *ChatBuilder) WithConversation(id api.ConversationID) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.target = id
	return b
}

// WithResumeLatest opens the most recent conversation when no explicit one
// is given.
func (b *ChatBuilder) WithResumeLatest(resume bool) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.resumeLatest = resume
	return b
}

// WithMessage sets the message sent in blocking mode.
func (b *ChatBuilder) WithMessage(message string) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.message = message
	return b
}

func (b *ChatBuilder) WithInputReader(r io.Reader) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if r == nil {
		b.err = errors.New("input reader cannot be nil")
		return b
	}
	b.inputReader = r
	return b
}

// WithOutputWriter sets the writer for line and blocking modes.
// Defaults to os.Stdout.
func (b *ChatBuilder) WithOutputWriter(w io.Writer) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if w == nil {
		b.err = errors.New("output writer cannot be nil")
		return b
	}
	b.outputWriter = w
	return b
}

func (b *ChatBuilder) WithErrorWriter(w io.Writer) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if w == nil {
		b.err = errors.New("error writer cannot be nil")
		return b
	}
	b.errorWriter = w
	return b
}

// WithWidth wraps assistant replies in line mode.
func (b *ChatBuilder) WithWidth(width int) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.width = width
	return b
}

func (b *ChatBuilder) Build() (*ChatSession, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.cfg == nil {
		return nil, errors.New("config is required (use WithConfig)")
	}
	if b.client == nil {
		return nil, errors.New("client is required (use WithClient)")
	}
	if b.mode == RunModeBlocking && strings.TrimSpace(b.message) == "" {
		return nil, errors.New("blocking mode needs a message (use WithMessage)")
	}

	return &ChatSession{
		ctx:            b.ctx,
		cfg:            b.cfg,
		client:         b.client,
		bus:            b.bus,
		programOptions: b.programOptions,
		mode:           b.mode,
		target:         b.target,
		resumeLatest:   b.resumeLatest,
		message:        b.message,
		inputReader:    b.inputReader,
		outputWriter:   b.outputWriter,
		errorWriter:    b.errorWriter,
		width:          b.width,
	}, nil
}

// IsInteractive reports whether stdin and stdout are both terminals.
func IsInteractive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

// Confirm asks a yes/no question on tty. The default answer is no.
func Confirm(tty io.ReadWriter, query string) (bool, error) {
	prompt := &input.UI{
		Writer: tty,
		Reader: tty,
	}

	answer, err := prompt.Ask(query+" [y/N]", &input.Options{
		Default:     "n",
		HideDefault: true,
		Loop:        true,
		ValidateFunc: func(answer string) error {
			switch strings.ToLower(answer) {
			case "y", "yes", "n", "no", "":
				return nil
			default:
				return errors.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to get user input")
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
