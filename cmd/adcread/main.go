package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/nergy-se/powersampler/pkg/convert"
	"github.com/nergy-se/powersampler/pkg/modbusclient"
)

var readCount = flag.Uint("read-count", 1, "how many channels to read starting at -channel")

func main() {
	address := flag.String("addr", "", "tcp modbus address")
	slaveID := flag.Int("slave", 1, "modbus slave id")
	channel := flag.Int("channel", 14, "input register holding the adc code")
	referenceScale := flag.Int64("reference-scale", convert.DefaultReferenceScale, "adc reference in centivolts")
	fullScale := flag.Int64("full-scale", convert.DefaultFullScaleCode, "adc full scale code")
	ratio := flag.Float64("ratio", convert.DefaultRatio, "voltage to power ratio")
	flag.Parse()

	conv, err := convert.New(*referenceScale, *fullScale, *ratio)
	if err != nil {
		log.Fatal(err)
	}

	client, err := modbusclient.Dial(*address, byte(*slaveID), 5*time.Second)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	values, err := client.ReadInputRegisters(uint16(*channel), uint16(*readCount))
	if err != nil {
		log.Println("error was: ", err)
		return
	}
	for i, raw := range values {
		fmt.Printf("channel %d raw: %d voltage: %d power: %d\n", *channel+i, raw, conv.Voltage(uint32(raw)), conv.Convert(uint32(raw)))
	}
}
