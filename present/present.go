// Package present turns ranked predictions into what the user reads: a one-line summary and the
// rows of a horizontal bar chart.
package present

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/krau/konaclassify/zoo"
)

var ErrNoPredictions = errors.New("no predictions")

type Row struct {
	Label string `json:"label"`

	// Probability in percent, two decimals.
	Probability float64 `json:"probability"`
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Summary names the most probable class, e.g. "It's a **Cat** with probability 87%".
func Summary(preds []zoo.Prediction) (string, error) {
	if len(preds) == 0 {
		return "", ErrNoPredictions
	}
	top := preds[0]
	return fmt.Sprintf("It's a **%s** with probability %.0f%%",
		capitalize(top.Label), float64(top.Probability)*100), nil
}

func ChartData(preds []zoo.Prediction) []Row {
	rows := make([]Row, len(preds))
	for i, p := range preds {
		rows[i] = Row{
			Label:       p.Label,
			Probability: math.Round(float64(p.Probability)*100*100) / 100,
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Probability > rows[j].Probability
	})
	return rows
}

// RenderText draws rows as a text bar chart; a 100% bar is width cells long.
func RenderText(rows []Row, width int) string {
	labelWidth := 0
	for _, r := range rows {
		labelWidth = max(labelWidth, utf8.RuneCountInString(r.Label))
	}
	var sb strings.Builder
	for _, r := range rows {
		cells := int(math.Round(r.Probability / 100 * float64(width)))
		cells = min(max(cells, 0), width)
		fmt.Fprintf(&sb, "%-*s │%s %6.2f%%\n", labelWidth, r.Label, strings.Repeat("█", cells), r.Probability)
	}
	return sb.String()
}

// Link is one entry of the resources list. Entries without a URL are plain headings.
type Link struct {
	Title    string
	URL      string
	Children []Link
}

// ResourceLinks is the reference material shown next to a profile.
func ResourceLinks(spec zoo.Spec) []Link {
	return []Link{
		{Title: "ONNX Runtime", URL: "https://onnxruntime.ai/", Children: []Link{
			{Title: "ONNX Model Zoo", URL: "https://github.com/onnx/models"},
			{Title: "Keras Apps", URL: "https://keras.io/applications", Children: []Link{
				{Title: spec.Name + " Docs", URL: spec.DocURL},
			}},
		}},
		{Title: "Images", Children: []Link{
			{Title: "ImageNet", URL: "http://www.image-net.org/"},
			{Title: "Awesome Images", URL: "https://github.com/heyalexej/awesome-images"},
		}},
	}
}

func writeLinks(sb *strings.Builder, links []Link, depth int) {
	for _, l := range links {
		sb.WriteString(strings.Repeat("  ", depth))
		if l.URL != "" {
			fmt.Fprintf(sb, "- [%s](%s)\n", l.Title, l.URL)
		} else {
			fmt.Fprintf(sb, "- %s\n", l.Title)
		}
		writeLinks(sb, l.Children, depth+1)
	}
}

// Resources lists reference links for a profile as markdown.
func Resources(spec zoo.Spec) string {
	var sb strings.Builder
	sb.WriteString("### Resources\n\n")
	writeLinks(&sb, ResourceLinks(spec), 0)
	return sb.String()
}
