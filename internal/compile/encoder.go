package compile

import (
	"fmt"
	"strings"

	"pipeld/pkg/types"
)

// encoder element names per codec, by family. The chain is priority-ordered:
// the sidecar tries the first entry and probes down the list when a GPU
// element is unavailable at runtime.
var encoderElements = map[string]struct {
	nvenc    string
	vaapi    string
	software string
}{
	"h264": {nvenc: "nvh264enc", vaapi: "vah264enc", software: "x264enc"},
	"hevc": {nvenc: "nvh265enc", vaapi: "vah265enc", software: "x265enc"},
	"av1":  {nvenc: "nvav1enc", vaapi: "vaav1enc", software: "svtav1enc"},
}

// EncoderChain builds the fallback chain for a GPU vendor and codec.
// NVIDIA prefers NVENC; AMD, Intel and auto prefer VA-API. Software encoding
// is always the terminal fallback.
func EncoderChain(gpu types.GPUVendor, codec string) ([]types.EncoderElement, error) {
	names, ok := encoderElements[strings.ToLower(codec)]
	if !ok {
		return nil, fmt.Errorf("unsupported codec %q", codec)
	}
	var chain []types.EncoderElement
	switch gpu {
	case types.GPUNvidia:
		chain = []types.EncoderElement{
			{Name: names.nvenc, Kind: "nvenc"},
			{Name: names.vaapi, Kind: "vaapi"},
			{Name: names.software, Kind: "software"},
		}
	case types.GPUAMD, types.GPUIntel, types.GPUAuto, "":
		chain = []types.EncoderElement{
			{Name: names.vaapi, Kind: "vaapi"},
			{Name: names.software, Kind: "software"},
		}
	default:
		return nil, fmt.Errorf("unknown gpu vendor %q", gpu)
	}
	for i := range chain {
		chain[i].Priority = i
	}
	return chain, nil
}
