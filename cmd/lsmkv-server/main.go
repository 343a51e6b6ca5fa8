package main

import (
	"flag"
	"log"

	"lsmkv/bootstrap"
)

func main() {
	flag.Parse()
	if err := bootstrap.Run(); err != nil {
		log.Fatal(err)
	}
}
