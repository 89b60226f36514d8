package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"meshtopo/internal/lab"
	"meshtopo/internal/topology"
)

// Report renders the show view of a topology.
func Report(rep *lab.Report, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(KeyValues("",
		KV("topology", Bold(rep.Topology)),
		KV("namespace", rep.Namespace),
		KV("devices", strconv.Itoa(len(rep.Devices))),
		KV("links", strconv.Itoa(len(rep.Links))),
	))
	sb.WriteString("\n")

	rows := make([][]string, 0, len(rep.Devices))
	for _, d := range rep.Devices {
		rows = append(rows, []string{
			d.Name,
			d.Kind.String(),
			d.Image,
			phase(string(d.Phase)),
			strconv.Itoa(d.Interfaces),
			d.Delay.String(),
			memory(d.Resources),
			d.Entry,
		})
	}
	sb.WriteString(Table([]string{"DEVICE", "KIND", "IMAGE", "STATE", "IFACES", "DELAY", "MEMORY", "ENTRY"}, rows))
	sb.WriteString("\n")

	rows = rows[:0]
	for _, l := range rep.Links {
		a, b := endpointAt(l.Endpoints, 0), endpointAt(l.Endpoints, 1)
		if !l.Complete {
			b = WarnStyle.Render("incomplete")
		}
		rows = append(rows, []string{l.Name, a, b})
	}
	sb.WriteString(Table([]string{"LINK", "A", "B"}, rows))
	sb.WriteString("\n")

	if len(rep.Ports) > 0 {
		rows = rows[:0]
		for _, p := range rep.Ports {
			rows = append(rows, []string{p.Device, strconv.Itoa(p.Internal), strconv.Itoa(p.External)})
		}
		sb.WriteString(Table([]string{"DEVICE", "PORT", "PUBLISHED"}, rows))
		sb.WriteString("\n")
	}

	if len(rep.Runs) > 0 {
		rows = rows[:0]
		for _, r := range rep.Runs {
			rows = append(rows, []string{
				r.Action,
				humanize.RelTime(r.At, now, "ago", "from now"),
				strconv.Itoa(r.Succeeded),
				strconv.Itoa(r.Failed),
				r.ID,
			})
		}
		sb.WriteString(Table([]string{"ACTION", "WHEN", "OK", "FAILED", "RUN"}, rows))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Outcome renders one line per batch of an action.
func Outcome(out *lab.Outcome) string {
	var sb strings.Builder
	for _, b := range out.Batches {
		switch {
		case b.OK():
			sb.WriteString(SuccessMsg("%s: %d ok", b.Op, len(b.Succeeded)))
		case len(b.Succeeded) == 0:
			sb.WriteString(ErrorMsg("%s: all %d failed", b.Op, len(b.Failed)))
		default:
			sb.WriteString(WarnMsg("%s: %d ok, %d failed (%s)", b.Op, len(b.Succeeded), len(b.Failed), strings.Join(b.FailedItems(), ", ")))
		}
		sb.WriteString("\n")
	}
	if len(out.Batches) == 0 {
		sb.WriteString(InfoMsg("%s: nothing to do", out.Action))
		sb.WriteString("\n")
	}
	sb.WriteString(Muted(fmt.Sprintf("run %s", out.RunID)))
	sb.WriteString("\n")
	return sb.String()
}

func phase(p string) string {
	switch p {
	case "":
		return Muted("absent")
	case "Running":
		return SuccessStyle.Render(p)
	case "Failed":
		return ErrorStyle.Render(p)
	default:
		return WarnStyle.Render(p)
	}
}

// memory renders the memory request, and the limit when set, in IEC units.
func memory(r topology.Resources) string {
	req := quantity(r.MemoryRequest)
	if r.MemoryLimit == "" {
		return req
	}
	return req + " / " + quantity(r.MemoryLimit)
}

func quantity(s string) string {
	if s == "" {
		return "-"
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return s
	}
	return humanize.IBytes(n)
}

func endpointAt(eps []string, i int) string {
	if i < len(eps) {
		return eps[i]
	}
	return "-"
}
