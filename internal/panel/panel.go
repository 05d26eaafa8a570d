package panel

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/unii2mqtt/unii2mqtt/internal/config"
	"github.com/unii2mqtt/unii2mqtt/internal/log"
	"github.com/unii2mqtt/unii2mqtt/internal/metrics"
	"github.com/unii2mqtt/unii2mqtt/internal/unii"
	"github.com/unii2mqtt/unii2mqtt/internal/util"
)

const (
	defaultOverrideTTL = 30 * time.Second
	drainInterval      = 5 * time.Second
	reconnectDelay     = 10 * time.Second
)

// panelClient is the protocol surface the coordinator drives. It is
// satisfied by *unii.Client.
type panelClient interface {
	Connect(ctx context.Context) error
	Disconnect()
	Connected() bool
	GetStatus(ctx context.Context) (map[int]unii.SectionState, error)
	GetInputStatus(ctx context.Context) (map[int]unii.InputStatus, error)
	GetInputArrangement(ctx context.Context) (map[int]unii.Input, error)
	ArmSection(ctx context.Context, section int, code string) error
	DisarmSection(ctx context.Context, section int, code string) error
	BypassInput(ctx context.Context, input int, code string) error
	UnbypassInput(ctx context.Context, input int, code string) error
	DrainEvents() (int, error)
	EventStream() <-chan unii.Event
	TakeEvents() map[int]unii.Event
}

// Panel coordinates the protocol client and the host-side state: the
// section and input views, operator-projected states, and event
// delivery to the bridge.
type Panel struct {
	config *config.Config
	log    *log.Logger
	client panelClient

	// OnSectionChange, when set, is invoked for every section state
	// transition, confirmed or projected. Set before Run.
	OnSectionChange func(Section)
	// OnEvent, when set, is invoked for every unsolicited panel
	// event. Set before Run.
	OnEvent func(unii.Event)

	overrideTTL time.Duration

	mu        sync.Mutex
	sections  map[int]*Section
	inputs    map[int]*Input
	overrides map[int]override
}

func NewPanel(cfg *config.Config, logger *log.Logger, m *metrics.Metrics) (*Panel, error) {
	variant, err := unii.ParseVariant(cfg.UNii.Variant)
	if err != nil {
		return nil, err
	}

	client := unii.NewClient(unii.Options{
		Host:         cfg.UNii.Host,
		Port:         cfg.UNii.Port,
		SharedKey:    cfg.UNii.SharedKey,
		UserCode:     cfg.UNii.UserCode,
		Variant:      variant,
		SkipCRCCheck: cfg.UNii.SkipCRCCheck,
		Metrics:      m,
	}, logger)

	return &Panel{
		config:      cfg,
		log:         logger,
		client:      client,
		overrideTTL: defaultOverrideTTL,
		sections:    make(map[int]*Section),
		inputs:      make(map[int]*Input),
		overrides:   make(map[int]override),
	}, nil
}

func (p *Panel) Connect(ctx context.Context) error {
	p.log.Info("Connecting to panel...")
	if err := p.client.Connect(ctx); err != nil {
		p.log.Error("Failed to connect to panel: %v", err)
		return fmt.Errorf("failed to connect to panel: %v", err)
	}
	return nil
}

func (p *Panel) Disconnect() {
	p.client.Disconnect()
}

func (p *Panel) Connected() bool {
	return p.client.Connected()
}

// LoadArrangement downloads the provisioned inputs from the panel and
// merges them into the input view.
func (p *Panel) LoadArrangement(ctx context.Context) error {
	p.log.Info("Discovering input arrangement...")
	found, err := p.client.GetInputArrangement(ctx)
	if err != nil {
		p.log.Error("Failed to get input arrangement: %v", err)
		return fmt.Errorf("failed to get input arrangement: %v", err)
	}

	p.mu.Lock()
	for number, in := range found {
		entry := p.ensureInputLocked(number)
		entry.Name = in.Name
		entry.Slug = util.Slugify(in.Name)
		entry.SensorType = in.SensorType
		entry.Reaction = in.Reaction
	}
	p.mu.Unlock()

	p.log.Info("Discovered %d provisioned inputs", len(found))
	return nil
}

// SetCachedArrangement seeds the input view from a previously saved
// arrangement, skipping the discovery scan.
func (p *Panel) SetCachedArrangement(inputs []Input) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, in := range inputs {
		entry := p.ensureInputLocked(in.Number)
		entry.Name = in.Name
		entry.Slug = in.Slug
		entry.SensorType = in.SensorType
		entry.Reaction = in.Reaction
	}
}

// Arrangement returns the provisioned inputs, for caching.
func (p *Panel) Arrangement() []Input {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Input
	for _, in := range p.inputs {
		if in.Provisioned() {
			out = append(out, *in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Refresh polls the panel for section and input status and merges the
// results into the host view. Confirmed data clears any projected
// states for the sections it covers.
func (p *Panel) Refresh(ctx context.Context) error {
	p.log.Debug("Polling section status")
	status, err := p.client.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get section status: %v", err)
	}

	p.log.Debug("Polling input status")
	inputStatus, err := p.client.GetInputStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get input status: %v", err)
	}

	changed := p.applyStatus(status, inputStatus)
	for _, s := range changed {
		p.notifySection(s)
	}

	// Events captured while the polls were in flight.
	for _, ev := range p.client.TakeEvents() {
		p.applyEvent(ev)
	}
	return nil
}

func (p *Panel) applyStatus(status map[int]unii.SectionState, inputStatus map[int]unii.InputStatus) []Section {
	p.mu.Lock()
	defer p.mu.Unlock()

	var changed []Section
	for number, state := range status {
		sec := p.ensureSectionLocked(number)
		_, projected := p.overrides[number]
		delete(p.overrides, number)
		if sec.State != state || projected {
			sec.State = state
			changed = append(changed, *sec)
		}
	}

	for number, st := range inputStatus {
		in := p.ensureInputLocked(number)
		in.Status = st
	}
	return changed
}

// Run pumps panel events to the listeners: it consumes events diverted
// during exchanges and periodically drains the socket for events that
// arrive while the line is otherwise idle. A dropped connection is
// re-established with a fixed retry delay. Run blocks until the
// context is cancelled.
func (p *Panel) Run(ctx context.Context) error {
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.client.EventStream():
			p.applyEvent(ev)
		case <-ticker.C:
			if _, err := p.client.DrainEvents(); err != nil {
				p.log.Error("Lost panel connection: %v", err)
				if err := p.reconnect(ctx); err != nil {
					return err
				}
			}
		}
	}
}

func (p *Panel) reconnect(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}

		if err := p.client.Connect(ctx); err != nil {
			p.log.Error("Reconnect failed: %v", err)
			continue
		}

		p.log.Info("Reconnected to panel")
		if err := p.Refresh(ctx); err != nil {
			p.log.Warning("Refresh after reconnect failed: %v", err)
		}
		return nil
	}
}

func (p *Panel) applyEvent(ev unii.Event) {
	p.mu.Lock()
	sec := p.ensureSectionLocked(ev.Section)
	sec.State = ev.State
	sec.Pending = false
	delete(p.overrides, ev.Section)
	snapshot := *sec
	p.mu.Unlock()

	p.log.Info("Section %d changed to %s", ev.Section, ev.State)
	if p.OnEvent != nil {
		p.OnEvent(ev)
	}
	p.notifySection(snapshot)
}

// Arm arms a section and projects the armed state until the panel
// confirms it.
func (p *Panel) Arm(ctx context.Context, section int, code string) error {
	p.log.Info("Arming section %d", section)
	if err := p.client.ArmSection(ctx, section, code); err != nil {
		p.log.Error("Failed to arm section %d: %v", section, err)
		return fmt.Errorf("failed to arm section %d: %v", section, err)
	}
	p.notifySection(p.projectState(section, unii.SectionStateArmed))
	return nil
}

// Disarm disarms a section and projects the disarmed state until the
// panel confirms it.
func (p *Panel) Disarm(ctx context.Context, section int, code string) error {
	p.log.Info("Disarming section %d", section)
	if err := p.client.DisarmSection(ctx, section, code); err != nil {
		p.log.Error("Failed to disarm section %d: %v", section, err)
		return fmt.Errorf("failed to disarm section %d: %v", section, err)
	}
	p.notifySection(p.projectState(section, unii.SectionStateDisarmedAlt))
	return nil
}

// Bypass bypasses an input. Inputs whose sensor type does not accept
// a bypass are rejected locally; inputs the arrangement does not know
// about are passed through for the panel to judge.
func (p *Panel) Bypass(ctx context.Context, input int, code string) error {
	if name, ok := p.bypassBlocked(input); ok {
		return fmt.Errorf("input %d (%s) cannot be bypassed", input, name)
	}

	p.log.Info("Bypassing input %d", input)
	if err := p.client.BypassInput(ctx, input, code); err != nil {
		p.log.Error("Failed to bypass input %d: %v", input, err)
		return fmt.Errorf("failed to bypass input %d: %v", input, err)
	}
	return nil
}

// Unbypass clears the bypass on an input.
func (p *Panel) Unbypass(ctx context.Context, input int, code string) error {
	p.log.Info("Unbypassing input %d", input)
	if err := p.client.UnbypassInput(ctx, input, code); err != nil {
		p.log.Error("Failed to unbypass input %d: %v", input, err)
		return fmt.Errorf("failed to unbypass input %d: %v", input, err)
	}
	return nil
}

func (p *Panel) bypassBlocked(input int) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	in, ok := p.inputs[input]
	if !ok || !in.Provisioned() {
		return "", false
	}
	return in.Name, !in.SensorType.Bypassable()
}

// Sections returns the current section view, ordered by number.
// Projected states mask the confirmed ones until they expire.
func (p *Panel) Sections() []Section {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	out := make([]Section, 0, len(p.sections))
	for number, sec := range p.sections {
		s := *sec
		if ov, ok := p.overrides[number]; ok {
			if now.After(ov.expires) {
				delete(p.overrides, number)
			} else {
				s.State = ov.state
				s.Pending = true
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Inputs returns the current input view, ordered by number. Slots the
// panel marks as disabled are skipped unless the arrangement names
// them.
func (p *Panel) Inputs() []Input {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Input, 0, len(p.inputs))
	for _, in := range p.inputs {
		if !in.Provisioned() && in.Status.Disabled() {
			continue
		}
		out = append(out, *in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (p *Panel) projectState(section int, state unii.SectionState) Section {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.overrides[section] = override{state: state, expires: time.Now().Add(p.overrideTTL)}
	sec := p.ensureSectionLocked(section)

	s := *sec
	s.State = state
	s.Pending = true
	return s
}

func (p *Panel) notifySection(s Section) {
	if p.OnSectionChange != nil {
		p.OnSectionChange(s)
	}
}

func (p *Panel) ensureSectionLocked(number int) *Section {
	sec, ok := p.sections[number]
	if !ok {
		sec = &Section{Number: number}
		p.sections[number] = sec
	}
	return sec
}

func (p *Panel) ensureInputLocked(number int) *Input {
	in, ok := p.inputs[number]
	if !ok {
		in = &Input{Number: number}
		p.inputs[number] = in
	}
	return in
}
