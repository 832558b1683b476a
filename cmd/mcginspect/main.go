// Command mcginspect lists the directory of an FST or PAK archive.
//
// Usage:
//
//	mcginspect archive.pak ...
//
// For PAK archives each packet's storage kind, offset, and packed/unpacked
// sizes are printed, and packets that look like nested archives or shape
// tables are flagged. For FST archives the named directory is listed.
package main

import (
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	mcg "github.com/steelherd/go-mcg"
)

var showAll bool

func init() {
	flag.BoolVar(&showAll, "a", false, "list null packets too")
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-a] <archive> ...\n", path.Base(os.Args[0]))
		os.Exit(1)
	}

	failures := 0
	for _, arg := range args {
		if err := inspect(arg); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", arg, err)
			failures++
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

func inspect(archivePath string) error {
	if strings.EqualFold(filepath.Ext(archivePath), ".fst") {
		return inspectFST(archivePath)
	}
	return inspectPAK(archivePath)
}

func inspectPAK(archivePath string) error {
	pak, err := mcg.OpenPAK(archivePath)
	if err != nil {
		return err
	}
	defer pak.Close()

	fmt.Printf("%s: %d packets", archivePath, pak.NumPackets())
	if pak.Magic() != mcg.PAKMagic {
		fmt.Printf(" (nonstandard signature 0x%08X)", pak.Magic())
	}
	fmt.Println()

	for i, e := range pak.Entries() {
		if e.Kind == mcg.StorageNull && !showAll {
			continue
		}
		fmt.Printf("  %5d  %-16s offset=%-10d packed=%-10d unpacked=%-10d%s\n",
			i, e.Kind, e.Offset, e.PackedSize, e.UnpackedSize, describePacket(pak, i))
	}
	return nil
}

// describePacket peeks at a packet's decoded bytes and names what they
// appear to hold.
func describePacket(pak *mcg.PAK, i int) string {
	data, err := pak.ReadPacket(i)
	if err != nil || len(data) == 0 {
		return ""
	}
	if len(data) >= 8 && binary.LittleEndian.Uint32(data[:4]) == mcg.PAKMagic {
		return "  [nested archive]"
	}
	if mcg.LooksLikeShapeTable(data) {
		if table, err := mcg.ParseShapeTable(data); err == nil {
			return fmt.Sprintf("  [shape table %q, %d shapes]", table.Version, table.Count())
		}
	}
	if _, err := mcg.ParseShapeTable(data); errors.Is(err, mcg.ErrMechSpriteFormat) {
		return "  [mech sprite frame]"
	}
	return ""
}

func inspectFST(archivePath string) error {
	fst, err := mcg.OpenFST(archivePath)
	if err != nil {
		return err
	}
	defer fst.Close()

	fmt.Printf("%s: %d entries\n", archivePath, fst.NumEntries())
	for _, e := range fst.Entries() {
		mark := " "
		if e.Compressed() {
			mark = "c"
		}
		fmt.Printf("  %s offset=%-10d size=%-10d packed=%-10d %s\n",
			mark, e.DataOffset, e.UncompressedSize, e.CompressedSize, e.Path)
	}
	return nil
}
