// Command mcgextract extracts MechCommander Gold FST and PAK archives.
//
// Usage:
//
//	mcgextract [-out dir] [-v] archive.fst archive.pak ...
//
// The archive kind is detected from the file header: seek-table archives
// start with the 0xFEEDFACE signature, anything else is tried as a flat
// archive. Extraction continues past corrupt entries and reports per-archive
// written/total counts.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	mcg "github.com/steelherd/go-mcg"
)

var (
	outDir  string
	verbose bool
)

func init() {
	flag.StringVar(&outDir, "out", "extracted", "output directory")
	flag.BoolVar(&verbose, "v", false, "print each file as it is extracted")
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-out dir] [-v] <archive> ...\n", path.Base(os.Args[0]))
		os.Exit(1)
	}

	failures := 0
	for _, arg := range args {
		if err := extract(arg); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", arg, err)
			failures++
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

func extract(archivePath string) error {
	dest := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath)))

	if isPAKFile(archivePath) {
		pak, err := mcg.OpenPAK(archivePath)
		if err != nil {
			return err
		}
		defer pak.Close()

		var progress func(i, total int)
		if verbose {
			progress = func(i, total int) {
				fmt.Printf("\r%s: packet %d/%d", archivePath, i+1, total)
			}
		}
		n, err := pak.ExtractAll(dest, "packet_", progress)
		if verbose {
			fmt.Println()
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s: extracted %d/%d packets to %s\n", archivePath, n, pak.NumPackets(), dest)
		return nil
	}

	fst, err := mcg.OpenFST(archivePath)
	if err != nil {
		return err
	}
	defer fst.Close()

	var progress func(i, total int, name string)
	if verbose {
		progress = func(i, total int, name string) {
			fmt.Printf("\r%s: %d/%d %-50.50s", archivePath, i+1, total, name)
		}
	}
	n, err := fst.ExtractAll(dest, progress)
	if verbose {
		fmt.Println()
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s: extracted %d/%d files to %s\n", archivePath, n, fst.NumEntries(), dest)
	return nil
}

// isPAKFile sniffs the archive signature. Checksum-stamped PAK variants
// without the signature are still openable as PAKs, but for auto-detection
// the extension has to break the tie.
func isPAKFile(p string) bool {
	if strings.EqualFold(filepath.Ext(p), ".pak") {
		return true
	}
	f, err := os.Open(p)
	if err != nil {
		return false
	}
	defer f.Close()
	var hdr [4]byte
	if _, err := f.Read(hdr[:]); err != nil {
		return false
	}
	return binary.LittleEndian.Uint32(hdr[:]) == mcg.PAKMagic
}
