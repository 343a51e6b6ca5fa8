// Command lsmkv-cli is a thin line-oriented REPL over the engine, not
// part of the engine's core and not held to its invariants, just a
// convenient way to poke at a data directory.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"lsmkv/internal/platform/repository/lsmtree"
)

func main() {
	dir := flag.String("dir", "./data", "engine data directory")
	flag.Parse()

	engine, err := lsmtree.Open(*dir, lsmtree.DefaultConfig())
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Println("lsmkv> set <key> <json-value> | get <key> | del <key> | range <lo> <hi> | stats | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("lsmkv> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		switch fields[0] {
		case "quit", "exit":
			return
		case "set":
			if len(fields) < 3 {
				fmt.Println("usage: set <key> <json-value>")
				continue
			}
			if err := engine.Set(fields[1], json.RawMessage(fields[2])); err != nil {
				fmt.Println("error:", err)
			}
		case "get":
			if len(fields) < 2 {
				fmt.Println("usage: get <key>")
				continue
			}
			value, found, err := engine.Get(fields[1])
			if err != nil {
				fmt.Println("error:", err)
			} else if !found {
				fmt.Println("(absent)")
			} else {
				fmt.Println(string(value))
			}
		case "del":
			if len(fields) < 2 {
				fmt.Println("usage: del <key>")
				continue
			}
			if err := engine.Delete(fields[1]); err != nil {
				fmt.Println("error:", err)
			}
		case "range":
			if len(fields) < 3 {
				fmt.Println("usage: range <lo> <hi>")
				continue
			}
			pairs, err := engine.Range(fields[1], fields[2])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, p := range pairs {
				fmt.Printf("%s = %s\n", p.Key, string(p.Value))
			}
		case "stats":
			s := engine.Stats()
			fmt.Printf("%+v\n", s)
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}
