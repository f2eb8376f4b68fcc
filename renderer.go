package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

var (
	// ErrSurfaceNotReady means Render ran before Layout gave the surface
	// a width. Nothing was mutated.
	ErrSurfaceNotReady = errors.New("render surface not laid out")
	ErrNilSnapshot     = errors.New("nil snapshot")
)

// Slot is the visual element for one processor or for memory: a text
// label and a filled bar.
type Slot struct {
	Label string
	// Width is the filled share of the bar in percent, clamped to 0-100.
	Width float64
	// Available is false when the value cannot be expressed as a
	// percentage (memory with a zero total).
	Available bool

	value float64
	bar   progress.Model
}

func newSlot() *Slot {
	return &Slot{bar: progress.New(progress.WithoutPercentage())}
}

func (s *Slot) setLoad(format LabelFormat, load float64) {
	s.value = load
	s.Label = format.Percent(load)
	s.Width = clampPercent(load)
	s.Available = true
}

// Renderer owns the CPU and memory slots and mutates them in place for
// each snapshot. It is not safe for concurrent use; callers feed it from
// a single goroutine.
type Renderer struct {
	format LabelFormat
	width  int

	cpus   []*Slot
	memory *Slot
	ram    [2]uint64

	// generation counts how many times the processor slot set was built.
	generation int
}

func NewRenderer(format LabelFormat) *Renderer {
	return &Renderer{format: format}
}

// Layout sets the surface width in terminal cells. A width of zero or
// less marks the surface as not ready.
func (r *Renderer) Layout(width int) {
	r.width = width
}

func (r *Renderer) Ready() bool {
	return r.width > 0
}

func (r *Renderer) Format() LabelFormat {
	return r.format
}

// SetFormat switches the label format and relabels existing slots.
func (r *Renderer) SetFormat(format LabelFormat) {
	r.format = format
	for _, slot := range r.cpus {
		slot.setLoad(format, slot.value)
	}
	if r.memory != nil {
		r.setMemory(r.ram)
	}
}

// Render applies one snapshot. When the processor count differs from the
// current slot count, every processor slot is rebuilt; otherwise slots
// are updated in place by index. The memory slot is created on first use.
func (r *Renderer) Render(snap *Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	if !r.Ready() {
		return ErrSurfaceNotReady
	}

	if len(r.cpus) != len(snap.CPUs) {
		r.cpus = make([]*Slot, len(snap.CPUs))
		for i := range r.cpus {
			r.cpus[i] = newSlot()
		}
		r.generation++
	}
	for i, load := range snap.CPUs {
		r.cpus[i].setLoad(r.format, load)
	}

	if r.memory == nil {
		r.memory = newSlot()
	}
	r.setMemory(snap.RAM)
	return nil
}

func (r *Renderer) setMemory(ram [2]uint64) {
	r.ram = ram
	used, total := ram[0], ram[1]

	slot := r.memory
	if total == 0 {
		slot.value = 0
		slot.Width = 0
		slot.Available = false
		slot.Label = r.format.Memory(used, total, 0, false)
		return
	}

	usedGB := float64(used) / bytesPerGiB
	totalGB := float64(total) / bytesPerGiB
	pct := usedGB / totalGB * 100

	slot.value = pct
	slot.Width = clampPercent(pct)
	slot.Available = true
	slot.Label = r.format.Memory(used, total, pct, true)
}

// CPUs returns a copy of the processor slots in index order.
func (r *Renderer) CPUs() []Slot {
	slots := make([]Slot, len(r.cpus))
	for i, slot := range r.cpus {
		slots[i] = *slot
	}
	return slots
}

// Memory returns the memory slot and whether it has been created yet.
func (r *Renderer) Memory() (Slot, bool) {
	if r.memory == nil {
		return Slot{}, false
	}
	return *r.memory, true
}

const (
	minBarWidth  = 10
	labelColumns = 28
)

func (r *Renderer) barWidth() int {
	return max(minBarWidth, r.width-labelColumns)
}

// View draws the slots. It returns an empty string before the first
// snapshot has been rendered.
func (r *Renderer) View(theme Theme) string {
	if r.memory == nil {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.Header)
	indexStyle := lipgloss.NewStyle().Foreground(theme.FaintText)
	labelStyle := lipgloss.NewStyle().Foreground(theme.NormalText)
	barWidth := r.barWidth()
	indexWidth := len(fmt.Sprint(max(len(r.cpus)-1, 0)))

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("CPU (%d)", len(r.cpus))))
	b.WriteByte('\n')
	for i, slot := range r.cpus {
		b.WriteString(indexStyle.Render(fmt.Sprintf("%*d ", indexWidth, i)))
		b.WriteString(slot.drawBar(theme, barWidth))
		b.WriteByte(' ')
		b.WriteString(labelStyle.Render(slot.Label))
		b.WriteByte('\n')
	}

	b.WriteString(headerStyle.Render("Memory"))
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", indexWidth+1))
	b.WriteString(r.memory.drawBar(theme, barWidth))
	b.WriteByte(' ')
	b.WriteString(labelStyle.Render(r.memory.Label))
	return b.String()
}

func (s *Slot) drawBar(theme Theme, width int) string {
	s.bar.Width = width
	s.bar.FullColor = string(theme.LoadColor(s.Width))
	s.bar.EmptyColor = string(theme.BarEmpty)
	return s.bar.ViewAs(s.Width / 100)
}
