package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/divaparadises/studio/imaging"
	"github.com/divaparadises/studio/internal/media"
	"github.com/divaparadises/studio/storage"
)

var (
	imageQuality string
	imageAspect  string
	imageOut     string
	imageCount   int32
	imageStore   bool
	maskPrefix   string
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Generate, edit and analyze images",
}

var imageGenerateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate an image with a Gemini image model",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := imaging.ParseQuality(imageQuality)
		if err != nil {
			return err
		}
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		prompt := strings.Join(args, " ")
		img, err := s.Images.Generate(cmd.Context(), prompt, q, imageAspect)
		if err != nil {
			return err
		}
		return saveImage(img, imageOut, prompt)
	},
}

var imageEditCmd = &cobra.Command{
	Use:   "edit <image> <instruction>",
	Short: "Edit a local image",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := imaging.ParseQuality(imageQuality)
		if err != nil {
			return err
		}
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		prompt := strings.Join(args[1:], " ")
		img, err := s.Images.Edit(cmd.Context(), prompt, args[0], q)
		if err != nil {
			return err
		}
		return saveImage(img, imageOut, prompt)
	},
}

var imageImagenCmd = &cobra.Command{
	Use:   "imagen <prompt>",
	Short: "Generate images with Imagen",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		prompt := strings.Join(args, " ")
		imgs, err := s.Images.GenerateImagen(cmd.Context(), prompt, imageCount, imageAspect)
		if err != nil {
			return err
		}
		base := strings.TrimSuffix(imageOut, filepath.Ext(imageOut))
		for i, img := range imgs {
			if err := saveImage(img, fmt.Sprintf("%s_%d", base, i+1), prompt); err != nil {
				return err
			}
		}
		return nil
	},
}

var imageAnalyzeCmd = &cobra.Command{
	Use:   "analyze <image> [prompt]",
	Short: "Describe an image",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		answer, err := s.Vision.Analyze(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

var imageDetectCmd = &cobra.Command{
	Use:   "detect <image> [prompt]",
	Short: "Detect objects and print their bounding boxes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		boxes, err := s.Vision.DetectObjects(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(boxes)
		}
		for _, b := range boxes {
			fmt.Printf("%-20s ymin=%d xmin=%d ymax=%d xmax=%d\n", b.Label, b.Box2D[0], b.Box2D[1], b.Box2D[2], b.Box2D[3])
		}
		return nil
	},
}

var imageSegmentCmd = &cobra.Command{
	Use:   "segment <image> [prompt]",
	Short: "Segment objects and write one mask per object",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		segments, err := s.Vision.SegmentObjects(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		base := maskPrefix
		for i, seg := range segments {
			mask, err := seg.MaskPNG()
			if err != nil {
				return fmt.Errorf("mask %d (%s): %w", i, seg.Label, err)
			}
			img := &imaging.Image{Data: mask, MIMEType: "image/png"}
			if err := img.Save(fmt.Sprintf("%s_mask_%d.png", base, i)); err != nil {
				return err
			}
			fmt.Printf("%s_mask_%d.png\t%s\n", base, i, seg.Label)
		}
		return nil
	},
}

// saveImage writes img to out, adding the extension of its MIME type when
// out has none, and copies it into the media store when --store is set.
func saveImage(img *imaging.Image, out, prompt string) error {
	if filepath.Ext(out) == "" {
		ext := media.Extension(img.MIMEType)
		if ext == "" {
			ext = ".png"
		}
		out += ext
	}
	if err := img.Save(out); err != nil {
		return err
	}
	if img.Caption != "" {
		fmt.Println(img.Caption)
	}
	fmt.Println(out)
	if !imageStore {
		return nil
	}
	return keep(storage.Image, img.Data, prompt, map[string]any{"path": out})
}

func init() {
	for _, c := range []*cobra.Command{imageGenerateCmd, imageEditCmd, imageImagenCmd} {
		c.Flags().StringVarP(&imageOut, "out", "o", "outputs/image", "output file")
		c.Flags().StringVar(&imageAspect, "aspect", "", "aspect ratio, e.g. 16:9")
		c.Flags().BoolVar(&imageStore, "store", false, "also keep the result in the media store")
	}
	imageGenerateCmd.Flags().StringVar(&imageQuality, "quality", string(imaging.Flash), "flash or pro")
	imageEditCmd.Flags().StringVar(&imageQuality, "quality", string(imaging.Flash), "flash or pro")
	imageImagenCmd.Flags().Int32VarP(&imageCount, "count", "n", 1, "number of images")
	imageSegmentCmd.Flags().StringVarP(&maskPrefix, "out", "o", "outputs/segment", "mask file prefix")

	imageCmd.AddCommand(imageGenerateCmd, imageEditCmd, imageImagenCmd, imageAnalyzeCmd, imageDetectCmd, imageSegmentCmd)
	rootCmd.AddCommand(imageCmd)
}
