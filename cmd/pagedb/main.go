// Command pagedb is a small flag-driven CLI over the storage engine: it
// builds and queries a B+Tree secondary index on top of a relation
// file, in the teacher's cmd/dinodb style (flag-parsed subcommands,
// uuid session identifiers, a SIGINT/SIGTERM close handler).
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/otiai10/copy"

	"pagedb/internal/bptree"
	"pagedb/internal/buffer"
	"pagedb/internal/config"
	"pagedb/internal/diskfile"
)

const recordSize = 16

// setupCloseHandler logs the session identifier and runs flush on
// SIGINT or SIGTERM before exiting, mirroring the teacher's
// setupCloseHandler/database.Close contract.
func setupCloseHandler(sessionId uuid.UUID, flush func() error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Printf("%s: session %s interrupted, flushing and exiting", config.DBName, sessionId)
		if err := flush(); err != nil {
			log.Printf("%s: flush on close failed: %v", config.DBName, err)
		}
		os.Exit(0)
	}()
}

func main() {
	promptFlag := flag.Bool("c", true, "print a prompt banner")
	projectFlag := flag.String("project", "", "choose subcommand: [build,scan,inspect,snapshot] (required)")
	dbFlag := flag.String("db", "data/", "DB folder")
	numBufsFlag := flag.Int("numbufs", config.DefaultNumBufs, "buffer pool frame count")
	relFlag := flag.String("rel", "", "relation name")
	attrFlag := flag.Int("attr", 0, "attribute byte offset to index on")
	lowFlag := flag.Int("low", 0, "scan low bound")
	lowOpFlag := flag.String("lowop", "gte", "scan low opcode: gt|gte")
	highFlag := flag.Int("high", 0, "scan high bound")
	highOpFlag := flag.String("highop", "lte", "scan high opcode: lt|lte")
	flag.Parse()

	os.MkdirAll(*dbFlag, 0775)
	if logFile, err := os.OpenFile(*dbFlag+"/"+config.LogFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
		log.SetOutput(io.MultiWriter(os.Stderr, logFile))
		defer logFile.Close()
	}

	sessionId := uuid.New()
	prompt := config.GetPrompt(*promptFlag)
	if prompt != "" {
		fmt.Println(prompt + "session " + sessionId.String())
	}

	switch *projectFlag {
	case "build":
		runBuild(*dbFlag, *numBufsFlag, *relFlag, int32(*attrFlag), sessionId)
	case "scan":
		runScan(*dbFlag, *numBufsFlag, *relFlag, int32(*attrFlag), *lowFlag, *lowOpFlag, *highFlag, *highOpFlag)
	case "inspect":
		runInspect(*dbFlag, *numBufsFlag, *relFlag, int32(*attrFlag))
	case "snapshot":
		runSnapshot(flag.Args())
	default:
		fmt.Println("must specify -project [build,scan,inspect,snapshot]")
		os.Exit(1)
	}
}

// runBuild scans relName's relation file, inserting every tuple's key
// (read at attrByteOffset) into a freshly built index, logging each
// insert to a diskfile.LoadLog and reporting its tail on completion.
func runBuild(dir string, numBufs int, relName string, attrByteOffset int32, sessionId uuid.UUID) {
	if relName == "" {
		fmt.Println("build requires -rel")
		os.Exit(1)
	}
	rel, err := diskfile.CreateRelation(dir+"/"+relName+".rel", recordSize)
	if err != nil {
		log.Fatal(err)
	}
	defer rel.Close()

	loadLog, err := diskfile.OpenLoadLog(dir + "/" + relName + ".load.log")
	if err != nil {
		log.Fatal(err)
	}
	defer loadLog.Close()

	bm := buffer.NewManager(numBufs)
	idx, err := bptree.CreateIndex(bm, dir, relName, attrByteOffset, bptree.Integer, nil)
	if err != nil {
		log.Fatal(err)
	}
	setupCloseHandler(sessionId, func() error { idx.Close(); return nil })
	defer idx.Close()

	scan, err := rel.NewScan()
	if err != nil {
		log.Fatal(err)
	}
	count := 0
	for {
		data, rid, err := scan.Next()
		if err != nil {
			break
		}
		key := int32(data[attrByteOffset]) | int32(data[attrByteOffset+1])<<8 |
			int32(data[attrByteOffset+2])<<16 | int32(data[attrByteOffset+3])<<24
		if err := idx.InsertEntry(key, rid); err != nil {
			log.Fatal(err)
		}
		if err := loadLog.Append(fmt.Sprintf("key=%d rid=%s", key, rid)); err != nil {
			log.Fatal(err)
		}
		count++
	}
	fmt.Printf("loaded %d tuples into %s,%d\n", count, relName, attrByteOffset)

	tail, err := diskfile.TailLines(dir+"/"+relName+".load.log", 5)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("last loaded:")
	for _, line := range tail {
		fmt.Println("  " + line)
	}
}

// runScan opens an existing index and reports every RecordId in
// [low, high] (per the requested opcodes).
func runScan(dir string, numBufs int, relName string, attrByteOffset int32, low int, lowOp string, high int, highOp string) {
	if relName == "" {
		fmt.Println("scan requires -rel")
		os.Exit(1)
	}
	bm := buffer.NewManager(numBufs)
	idx, err := bptree.OpenIndex(bm, dir, relName, attrByteOffset, bptree.Integer)
	if err != nil {
		log.Fatal(err)
	}
	defer idx.Close()

	lo, err := parseOp(lowOp)
	if err != nil {
		log.Fatal(err)
	}
	hi, err := parseOp(highOp)
	if err != nil {
		log.Fatal(err)
	}

	if err := idx.StartScan(int32(low), lo, int32(high), hi); err != nil {
		fmt.Println("no matching entries:", err)
		return
	}
	defer idx.EndScan()

	count := 0
	for {
		rid, err := idx.ScanNext()
		if err != nil {
			break
		}
		fmt.Println(rid)
		count++
	}
	fmt.Printf("%d entries matched\n", count)
}

func parseOp(s string) (bptree.Operator, error) {
	switch s {
	case "gt":
		return bptree.GT, nil
	case "gte":
		return bptree.GTE, nil
	case "lt":
		return bptree.LT, nil
	case "lte":
		return bptree.LTE, nil
	}
	return 0, fmt.Errorf("unrecognized opcode %q", s)
}

// runInspect prints a diagnostic dump of the buffer pool's frame
// descriptors and the index's tree structure, for operator debugging.
func runInspect(dir string, numBufs int, relName string, attrByteOffset int32) {
	if relName == "" {
		fmt.Println("inspect requires -rel")
		os.Exit(1)
	}
	bm := buffer.NewManager(numBufs)
	idx, err := bptree.OpenIndex(bm, dir, relName, attrByteOffset, bptree.Integer)
	if err != nil {
		log.Fatal(err)
	}
	defer idx.Close()

	fmt.Println("== tree ==")
	idx.Print(os.Stdout)
	fmt.Println("== buffer pool ==")
	bm.PrintSelf(os.Stdout)
}

// runSnapshot recursively copies a closed database directory for
// backup purposes: `pagedb -project snapshot <src> <dst>`.
func runSnapshot(args []string) {
	if len(args) != 2 {
		fmt.Println("snapshot requires <src> <dst>")
		os.Exit(1)
	}
	if err := copy.Copy(args[0], args[1]); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("snapshotted %s to %s\n", args[0], args[1])
}
