package loaders

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

const spirvMagic = 0x07230203

// SPIRVLoader reads compiled shader stages. The resource name is the stage
// file name without the .spv suffix, for example "texture.frag".
type SPIRVLoader struct{}

func (bl *SPIRVLoader) Load(path string) (*Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open shader %s", path)
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read shader %s", path)
	}

	code, err := bytesToBytecode(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}

	return &Resource{
		Name:     ShaderName(path),
		FullPath: path,
		DataSize: uint64(len(buf)),
		Data:     code,
	}, nil
}

func (bl *SPIRVLoader) Unload(*Resource) error {
	return nil
}

// ShaderName maps a SPIR-V file to the stage name it is looked up by.
func ShaderName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".spv")
}

func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("invalid SPIR-V size %d", len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}
	if byteCode[0] != spirvMagic {
		return nil, errors.Newf("bad SPIR-V magic %#x", byteCode[0])
	}

	return byteCode, nil
}
