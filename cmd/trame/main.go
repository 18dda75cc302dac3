// Command trame parses a binary frame against a protocol specification
// document and prints the resulting field tree as JSON.
//
// The input frame is given as a hex string, either with -hex or on
// stdin:
//
//	trame -doc knx.json -type HEADER -hex 06100203000e
//	echo "06100203000e" | trame -doc knx.json -type HEADER
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/trameio/trame/pkg/bytecodec"
	"github.com/trameio/trame/pkg/frame"
	"github.com/trameio/trame/pkg/protospec"
)

func main() {
	var (
		docPath   = flag.String("doc", "", "path to the specification document (JSON or YAML)")
		blockType = flag.String("type", "", "block type to build, e.g. HEADER")
		hexInput  = flag.String("hex", "", "frame bytes as a hex string (default: read stdin)")
		order     = flag.String("order", "big", "byte order: big or little")
		verbose   = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if err := run(*docPath, *blockType, *hexInput, *order, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "trame:", err)
		os.Exit(1)
	}
}

func run(docPath, blockType, hexInput, orderName string, verbose bool) error {
	if docPath == "" || blockType == "" {
		return fmt.Errorf("both -doc and -type are required")
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	order, err := bytecodec.ParseOrder(orderName)
	if err != nil {
		return err
	}

	raw, err := readFrame(hexInput)
	if err != nil {
		return err
	}

	loader := protospec.NewLoader(protospec.WithLogger(logger))
	doc, err := loader.Load(docPath)
	if err != nil {
		return err
	}

	b := frame.NewBuilder(doc, frame.WithLogger(logger), frame.WithOrder(order))
	blk, err := b.Build(context.Background(), blockType, frame.WithBytes(raw))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(dumpNode(blk), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func readFrame(hexInput string) ([]byte, error) {
	if hexInput == "" {
		in, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		hexInput = string(in)
	}
	hexInput = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			return -1
		}
		return r
	}, hexInput)
	hexInput = strings.TrimPrefix(hexInput, "0x")

	raw, err := hex.DecodeString(hexInput)
	if err != nil {
		return nil, fmt.Errorf("decoding hex input: %w", err)
	}
	return raw, nil
}

// dumpNode renders a built block tree as nested maps: blocks become
// objects keyed by item name, fields become hex strings.
func dumpNode(n frame.Node) any {
	blk, ok := n.(*frame.Block)
	if !ok {
		return fmt.Sprintf("0x%x", n.Bytes())
	}
	out := make(map[string]any, len(blk.Items()))
	for _, item := range blk.Items() {
		out[item.Name()] = dumpNode(item)
	}
	return out
}
