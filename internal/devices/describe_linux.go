//go:build linux

package devices

import (
	"fmt"

	"github.com/smazurov/framebridge/pkg/linuxav/v4l2"
)

func describe(d *Device) error {
	c, err := v4l2.QueryCapability(d.Path)
	if err != nil {
		return err
	}
	d.Card = c.Card
	d.Driver = c.Driver
	d.Capture = c.IsCapture()
	if !d.Capture {
		return nil
	}

	formats, err := queryFormats(d.Path)
	if err != nil {
		return err
	}
	d.Formats = formats
	return nil
}

func queryFormats(path string) ([]Format, error) {
	infos, err := v4l2.GetFormats(path)
	if err != nil {
		return nil, err
	}
	formats := make([]Format, 0, len(infos))
	for _, info := range infos {
		found, err := v4l2.GetResolutions(path, info.PixelFormat)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v4l2.FormatFourCC(info.PixelFormat), err)
		}
		f := Format{FourCC: v4l2.FormatFourCC(info.PixelFormat), Name: info.FormatName, Emulated: info.Emulated}
		for _, s := range found {
			f.Resolutions = append(f.Resolutions, Resolution{Width: int(s.Width), Height: int(s.Height)})
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// CheckResolution returns an error wrapping ErrUnsupportedResolution when the
// capture node at path lists its frame sizes and width x height is not one of
// them. Nodes that cannot be queried, or list no sizes, pass.
func CheckResolution(path string, width, height int) error {
	formats, err := queryFormats(path)
	if err != nil {
		return nil
	}
	return checkResolution(formats, width, height)
}
