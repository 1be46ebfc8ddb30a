package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
)

const timeLayout = "2006-01-02 15:04"

func writeJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func renderApps(w io.Writer, st styles, apps []types.App) {
	if len(apps) == 0 {
		fmt.Fprintln(w, st.Muted.Render("No apps found."))
		return
	}

	rows := make([][]string, 0, len(apps))
	for _, a := range apps {
		star := ""
		if a.Favorite {
			star = "★"
		}
		rows = append(rows, []string{
			star,
			a.Name,
			strconv.Itoa(a.RunCount),
			lastRun(a.LastRun),
			a.Path,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(st.Border).
		Headers("", "NAME", "RUNS", "LAST RUN", "PATH").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return st.Header
			case col == 0:
				return st.Star.Padding(0, 1)
			case col == 3 || col == 4:
				return st.Muted.Padding(0, 1)
			default:
				return st.Cell
			}
		})

	fmt.Fprintln(w, t.String())
	fmt.Fprintln(w, st.Muted.Render(fmt.Sprintf("%d app(s)", len(apps))))
}

func renderInfo(w io.Writer, st styles, info types.AppInfo) {
	field := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", st.Label.Render(label), value)
	}

	field("Name", info.Name)
	field("Path", info.Path)
	if info.Exists {
		field("Size", formatSize(info.Size))
		field("Modified", info.ModTime.Local().Format(timeLayout))
		if info.Checksum != "" {
			field("BLAKE2b", info.Checksum)
		}
	} else {
		field("Status", st.Error.Render("missing on disk"))
	}
	field("Favorite", yesNo(info.Favorite))
	field("Runs", strconv.Itoa(info.RunCount))
	field("Last run", lastRun(info.LastRun))
	if info.Icon != "" {
		field("Icon", info.Icon)
	} else {
		field("Icon", st.Muted.Render("none"))
	}
}

func renderStats(w io.Writer, st styles, s types.RegistryStats) {
	field := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", st.Label.Render(label), value)
	}

	field("Apps", strconv.Itoa(s.Total))
	field("Favorites", strconv.Itoa(s.Favorites))
	field("Launched", strconv.Itoa(s.Launched))
	field("Launches", strconv.Itoa(s.TotalLaunches))
	field("Mean runs", fmt.Sprintf("%.2f (σ %.2f)", s.MeanRuns, s.StdDevRuns))
	if s.MostUsed != "" {
		field("Most used", s.MostUsed)
	}
}

func lastRun(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(timeLayout)
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
