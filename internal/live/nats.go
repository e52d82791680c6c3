// internal/live/nats.go
//
// Renderer that publishes match events to NATS subjects.

package live

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/matchgrid/internal/game"
)

// SubjectPrefix roots every published subject.
const SubjectPrefix = "matchgrid.session"

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subj string, data []byte) error
}

// Connect dials the broker with reconnect settings suited to a long-lived
// game server.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

// Subject returns the subject for one session event type.
func Subject(sessionID, typ string) string {
	return SubjectPrefix + "." + sessionID + "." + typ
}

// Publisher is a renderer that mirrors one session's events to the broker.
// Publish failures are logged and never reach the game.
type Publisher struct {
	conn      Conn
	sessionID string
}

var _ game.Renderer = (*Publisher)(nil)

func NewPublisher(conn Conn, sessionID string) *Publisher {
	return &Publisher{conn: conn, sessionID: sessionID}
}

func (p *Publisher) publish(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Str("type", m.Type).Msg("encode nats event")
		return
	}
	subj := Subject(p.sessionID, m.Type)
	if err := p.conn.Publish(subj, data); err != nil {
		log.Warn().Err(err).Str("subject", subj).Msg("publish")
	}
}

func (p *Publisher) GridBuilt(g game.Grid) { p.publish(gridMessage(g)) }

func (p *Publisher) CardFlipped(c game.Card) {
	p.publish(NewMessage(TypeCardFlipped, View(c)))
}

func (p *Publisher) CardUnflipped(c game.Card) {
	p.publish(NewMessage(TypeCardUnflipped, View(c)))
}

func (p *Publisher) CardMatched(c game.Card) {
	p.publish(NewMessage(TypeCardMatched, View(c)))
}

func (p *Publisher) Tick(remaining int) {
	p.publish(NewMessage(TypeTick, tickPayload{Remaining: remaining}))
}

func (p *Publisher) GameEnded(won bool) {
	p.publish(NewMessage(TypeGameEnded, endPayload{Won: won}))
}
