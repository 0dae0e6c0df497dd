// Command serialio-echo opens a real serial device and answers every
// REQUEST it receives by echoing the payload back. It is a wiring example,
// not part of the library's public contract.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/clint-tools/serialio/portlist"
	"github.com/clint-tools/serialio/serialio"
	"github.com/clint-tools/serialio/transport"
	"github.com/clint-tools/serialio/wire"
)

func main() {
	port := flag.String("port", "", "serial device path, e.g. /dev/ttyUSB0")
	baud := flag.Int("baud", 115200, "baud rate")
	flag.Parse()

	if *port == "" {
		ports, err := portlist.List()
		if err != nil {
			log.Fatalf("listing ports: %v", err)
		}
		if len(ports) == 0 {
			log.Fatal(portlist.ErrNoneFoundMessage())
		}
		log.Printf("no -port given; candidates: %v", ports)
		return
	}

	eng := serialio.NewEngine(transport.NewSerialPort(*port, *baud))
	eng.OnMessage(func(msg wire.Message) ([]byte, error) {
		log.Printf("request %d: %q", msg.ID(), msg.PayloadString())
		return msg.Payload(), nil
	})
	eng.OnClose(func(unexpected bool, err error) {
		if unexpected {
			log.Printf("unexpected close: %v (reopen supervisor engaged)", err)
		}
	})

	if err := eng.Open(); err != nil {
		log.Fatalf("open %s: %v", *port, err)
	}
	defer eng.Close()

	log.Printf("listening on %s, echoing requests; Ctrl+C to exit", *port)
	for {
		time.Sleep(time.Hour)
	}
}
