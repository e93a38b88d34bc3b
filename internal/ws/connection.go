package ws

import (
	"context"
	"errors"
	"sync"

	"govorilka/internal/models"
)

type wsConnection interface {
	Close() error
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
}

type connectionHub interface {
	Connect() (string, chan models.ServerEvent)
	Disconnect(sessionID string)
	Setup(sessionID, userID string)
	JoinChat(sessionID, userID, chatID string)
	Typing(sessionID, userID, chatID string, typing bool)
	Relay(userID string, msg *models.Message)
}

// Connection pumps events between one websocket and the hub. The user
// identity is fixed at handshake time and never reassigned.
type Connection struct {
	ws         wsConnection
	hub        connectionHub
	userID     string
	sessionID  string
	fromClient chan models.ClientEvent
	fromServer chan models.ServerEvent
	errorCh    chan error
}

func NewConnection(
	hub connectionHub,
	ws wsConnection,
	userID string,
) *Connection {
	sessionID, fromServer := hub.Connect()
	return &Connection{
		ws:         ws,
		hub:        hub,
		userID:     userID,
		sessionID:  sessionID,
		fromClient: make(chan models.ClientEvent),
		fromServer: fromServer,
		errorCh:    make(chan error, 2),
	}
}

func (c *Connection) Handle(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		close(c.fromClient)
		close(c.errorCh)
		c.hub.Disconnect(c.sessionID)
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		c.errorCh <- c.pumpEvents(ctx)
		cancel()
	})

	wg.Go(func() {
		c.errorCh <- c.mainLoop(ctx)
		cancel()
	})

	var err error
	select {
	case err = <-c.errorCh:
	case <-ctx.Done():
	}
	c.ws.Close()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (c *Connection) pumpEvents(ctx context.Context) error {
	for {
		var ev models.ClientEvent
		if err := c.ws.ReadJSON(&ev); err != nil {
			return err
		}
		select {
		case c.fromClient <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Connection) mainLoop(ctx context.Context) error {
	for {
		select {
		case ev := <-c.fromClient:
			c.processClientEvent(ev)
		case ev, ok := <-c.fromServer:
			if !ok {
				return nil
			}
			if err := c.ws.WriteJSON(ev); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Connection) processClientEvent(ev models.ClientEvent) {
	switch ev.Type {
	case models.ClientEventSetup:
		c.hub.Setup(c.sessionID, c.userID)
	case models.ClientEventJoinChat:
		c.hub.JoinChat(c.sessionID, c.userID, ev.ChatID)
	case models.ClientEventTyping:
		c.hub.Typing(c.sessionID, c.userID, ev.ChatID, ev.Typing)
	case models.ClientEventNewMessage:
		c.hub.Relay(c.userID, ev.Message)
	}
}
