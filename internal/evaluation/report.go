package evaluation

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aclements/go-moremath/stats"
	"github.com/dustin/go-humanize"
)

// ScoreSummary describes one score pool
type ScoreSummary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize computes a ScoreSummary. An empty pool yields a zero summary.
func Summarize(scores []float64) ScoreSummary {
	if len(scores) == 0 {
		return ScoreSummary{}
	}
	sample := stats.Sample{Xs: scores}
	min, max := sample.Bounds()
	return ScoreSummary{
		Count:  len(scores),
		Mean:   sample.Mean(),
		StdDev: sample.StdDev(),
		Min:    min,
		Max:    max,
	}
}

// Report is the outcome of an evaluation run
type Report struct {
	GallerySize int
	Pairs       int
	Genuine     ScoreSummary
	Impostor    ScoreSummary
	Results     []TPRResult
	Elapsed     time.Duration
}

// NewReport evaluates pool at every divider
func NewReport(pool *ScorePool, dividers []int) (*Report, error) {
	r := &Report{
		Pairs:    len(pool.Genuine) + len(pool.Impostor),
		Genuine:  Summarize(pool.Genuine),
		Impostor: Summarize(pool.Impostor),
	}
	for _, d := range dividers {
		res, err := pool.TPR(d)
		if err != nil {
			return nil, fmt.Errorf("TPR @ FPR 1:%d: %w", d, err)
		}
		r.Results = append(r.Results, res)
	}
	return r, nil
}

// Write prints the report as aligned text
func (r *Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Gallery size:\t%d\n", r.GallerySize)
	fmt.Fprintf(tw, "Pairs:\t%s\n", humanize.Comma(int64(r.Pairs)))
	if r.Elapsed > 0 {
		fmt.Fprintf(tw, "Elapsed:\t%s\n", r.Elapsed.Round(time.Millisecond))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "POOL\tCOUNT\tMEAN\tSTDDEV\tMIN\tMAX")
	for _, row := range []struct {
		name string
		s    ScoreSummary
	}{{"genuine", r.Genuine}, {"impostor", r.Impostor}} {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.4f\t%.4f\n",
			row.name, humanize.Comma(int64(row.s.Count)), row.s.Mean, row.s.StdDev, row.s.Min, row.s.Max)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "FPR\tTPR\tTHRESHOLD\tINDEX")
	for _, res := range r.Results {
		fmt.Fprintf(tw, "1:%s\t%.4f\t%.6f\t%d\n",
			humanize.Comma(int64(res.Divider)), res.TPR, res.Threshold, res.Index)
	}

	return tw.Flush()
}
