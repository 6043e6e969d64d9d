package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/ddsm.go/pkg/ddsm/report"
)

var (
	mqttURL = "mqtt://localhost:1883/ddsm/"
	hostID  = "+"
)

func init() {
	if val := os.Getenv("DDSM_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&hostID, "host-id", hostID, "Host ID to watch, + for all.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := report.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	token := q.SubEvents(hostID, func(topic string, ev *report.Event) {
		log.Printf("%s: %s", topic, ev.String())
	})
	if token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
