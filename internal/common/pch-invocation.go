package common

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"
	"time"
)

// PCHInvocation is a manifest saved next to every precompiled header.
// It records how the artifact was produced, so that `rcompdb precompiled` can show it
// and a human can reproduce the clang call.
type PCHInvocation struct {
	Dependency       string    `json:"dependency"`
	StdFlag          string    `json:"stdFlag,omitempty"`
	ToolchainVersion string    `json:"toolchainVersion"`
	InputFile        string    `json:"inputFile"`
	OutputFile       string    `json:"outputFile"`
	Args             []string  `json:"args"`
	Hash             string    `json:"hash"`
	CreatedAt        time.Time `json:"createdAt"`
}

func CalcArgsHash(args []string) string {
	sum := sha256.Sum256([]byte(strings.Join(args, "\x00")))
	return hex.EncodeToString(sum[:])
}

func (pch *PCHInvocation) SaveToFile(fileName string) error {
	data, err := json.MarshalIndent(pch, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(fileName, data)
}

func ParsePchInvocationFile(fileName string) (*PCHInvocation, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	pch := &PCHInvocation{}
	if err := json.Unmarshal(data, pch); err != nil {
		return nil, err
	}
	return pch, nil
}
