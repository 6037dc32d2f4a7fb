package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/texstream/engine/assets"
	"github.com/spaghettifunk/texstream/engine/assets/loaders"
	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
	"github.com/spf13/cobra"
)

var bakeOutput string

// bakeCmd represents the bake command
var bakeCmd = &cobra.Command{
	Use:   "bake <image>",
	Short: "Bake a compressed mip chain from an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		if t, err := assets.AssetType(input); err != nil || t != metadata.ResourceTypeImage {
			return fmt.Errorf("%s is not a supported image", input)
		}
		output := bakeOutput
		if output == "" {
			output = strings.TrimSuffix(input, filepath.Ext(input)) + ".tmip"
		}
		return bake(cmd, input, output)
	},
}

func bake(cmd *cobra.Command, input, output string) error {
	res, err := loaders.NewImageLoader(1).Load(cmd.Context(), input, nil)
	if err != nil {
		return err
	}
	img := res.Data.(*metadata.ImageResourceData)

	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	chain := loaders.BakeMipChain(name, img.Image)

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := loaders.WriteMipChain(f, chain); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	core.LogDebug("baked %s from %s %s", output, img.Format, input)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d, %d levels\n", output, chain.Width, chain.Height, chain.MipLevels())
	return nil
}

func init() {
	bakeCmd.Flags().StringVarP(&bakeOutput, "output", "o", "", "output file (defaults to the image name with .tmip)")
	RootCmd.AddCommand(bakeCmd)
}
