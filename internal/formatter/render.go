package formatter

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/reconcile"
	"github.com/desertthunder/mixsync/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Palette is a small stylesheet of named [lipgloss.Style] fields used for terminal output.
type Palette struct {
	title lipgloss.Style
	added lipgloss.Style
	gone  lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
}

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

func NewPalette(t, a, g, w, m string) *Palette {
	return &Palette{
		title: newStyle(t).Bold(true),
		added: newStyle(a).Bold(true),
		gone:  newStyle(g).Bold(true),
		warn:  newStyle(w),
		muted: newStyle(m).Italic(true),
	}
}

func newStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

// FormatDiff writes a summary of cmp: headline counts, added and missing listings, and an order notice.
func FormatDiff(w io.Writer, cmp reconcile.Comparison) error {
	var b strings.Builder

	b.WriteString(styles.title.Render("Comparison"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s added, %s missing, %d common\n",
		styles.added.Render(strconv.Itoa(len(cmp.Added))),
		styles.gone.Render(strconv.Itoa(len(cmp.Missing))),
		len(cmp.Common))

	if len(cmp.Added) > 0 {
		b.WriteString("\n" + styles.added.Render("Added") + "\n")
		for _, t := range cmp.Added {
			fmt.Fprintf(&b, "  + %s\n", trackLine(t))
		}
	}

	if len(cmp.Missing) > 0 {
		b.WriteString("\n" + styles.gone.Render("Missing") + "\n")
		for _, t := range cmp.Missing {
			fmt.Fprintf(&b, "  - %s\n", trackLine(t))
		}
	}

	if cmp.HasOrderDifference {
		b.WriteString("\n" + styles.warn.Render("Track order differs from the incoming playlist") + "\n")
	}

	if cmp.IsEmpty() {
		b.WriteString("\n" + styles.muted.Render("Already in sync") + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatMerge writes the merged track list, marking tracks that entered from the incoming list.
func FormatMerge(w io.Writer, res reconcile.Result) error {
	added := make(map[int]struct{}, len(res.NewlyAddedTracks))
	for _, t := range res.NewlyAddedTracks {
		added[t.Position] = struct{}{}
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("Merged (%d tracks, %d new)", len(res.MergedTracks), len(res.NewlyAddedTracks))))
	b.WriteString("\n")

	for _, t := range res.MergedTracks {
		marker := " "
		line := trackLine(t)
		if _, ok := added[t.Position]; ok {
			marker = styles.added.Render("+")
			line += " " + styles.muted.Render("(new)")
		}
		fmt.Fprintf(&b, "%s %3d. %s\n", marker, t.Position, line)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// TracksTable renders tracks as a table with position, title, artist, album, duration, and source columns.
func TracksTable(tracks []models.Track) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"#", "Title", "Artist", "Album", "Duration", "Source"})

	for i, t := range tracks {
		tw.AppendRow(table.Row{position(t, i), t.Title, t.Artist, t.Album, shared.FormatDuration(t.Duration), trackSource(t)})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	return tw.Render()
}

// PlaylistsTable renders local playlists.
func PlaylistsTable(playlists []*models.PersistedPlaylist) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Name", "Tracks", "Source", "Updated"})

	for _, p := range playlists {
		source := p.Provenance()
		if p.SourceRef() != "" {
			source += ":" + p.SourceRef()
		}
		tw.AppendRow(table.Row{p.ID(), p.Name(), p.TrackCount(), source, humanize.Time(p.UpdatedAt())})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	return tw.Render()
}

// CoversTable renders cached cover metadata with human readable sizes.
func CoversTable(covers []models.Cover) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"Key", "Dimensions", "Size", "Cached"})

	for _, c := range covers {
		tw.AppendRow(table.Row{c.Key, fmt.Sprintf("%dx%d", c.Width, c.Height), humanize.Bytes(uint64(max(c.Size, 0))), humanize.Time(c.CreatedAt)})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	return tw.Render()
}

// RunsTable renders sync history, newest first as given.
func RunsTable(runs []*models.SyncRun) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"Run", "Playlist", "Source", "Status", "Before", "After", "Added", "Dropped", "When"})

	for _, r := range runs {
		status := r.Status()
		if r.ErrorMessage() != "" {
			status += ": " + r.ErrorMessage()
		}
		tw.AppendRow(table.Row{
			r.Sequence(),
			r.PlaylistID(),
			r.Provenance(),
			status,
			r.TracksBefore(),
			r.TracksAfter(),
			r.TracksAdded(),
			r.TracksDropped(),
			humanize.Time(runTime(r)),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	return tw.Render()
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

func runTime(r *models.SyncRun) time.Time {
	if at := r.CompletedAt(); at != nil {
		return *at
	}
	return r.CreatedAt()
}

func trackLine(t models.Track) string {
	line := t.Title
	if t.Artist != "" {
		line = t.Artist + " - " + t.Title
	}
	if t.Duration != nil {
		line += " [" + shared.FormatDuration(t.Duration) + "]"
	}
	return line
}

func trackSource(t models.Track) string {
	if link, ok := t.Link(models.ProvenanceSpotify); ok {
		return "spotify:" + link.ID
	}
	if t.FileOrigin != nil {
		return t.FileOrigin.URL
	}
	return ""
}
