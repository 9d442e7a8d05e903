package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dudu/frvtface/internal/detector"
	"github.com/dudu/frvtface/internal/imageio"
	"github.com/dudu/frvtface/internal/pipeline"
)

var landmarkNames = [detector.NumLandmarks]string{
	detector.LeftEye:    "left eye",
	detector.RightEye:   "right eye",
	detector.Nose:       "nose",
	detector.MouthLeft:  "mouth left",
	detector.MouthRight: "mouth right",
}

var landmarksCmd = &cobra.Command{
	Use:   "landmarks <image>",
	Short: "Print the best face box and its validated landmarks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := imageio.Load(args[0])
		if err != nil {
			return err
		}
		defer img.Close()

		p, err := pipeline.New(cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		result, err := p.Process(img)
		if errors.Is(err, pipeline.ErrNoFace) {
			fmt.Println("no face detected")
			return nil
		}
		if err != nil {
			return err
		}

		r := result.Face.Rect
		fmt.Printf("face: (%.1f, %.1f) - (%.1f, %.1f) score %.3f\n", r.X1, r.Y1, r.X2, r.Y2, r.Score)
		if result.Landmarks.Empty() {
			fmt.Println("no reliable landmarks")
			return nil
		}
		for i, pt := range result.Landmarks {
			fmt.Printf("%-11s %d %d\n", landmarkNames[i]+":", pt.X, pt.Y)
		}

		t := p.LastTiming()
		fmt.Printf("timing: detection %s, landmarks %s, recognition %s, total %s\n",
			t.Detection, t.Landmarks, t.Recognition, t.Total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(landmarksCmd)
}
