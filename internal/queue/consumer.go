// internal/queue/consumer.go

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"shareboard/internal/domain/post"
	"shareboard/internal/fault"
)

// ConsumerConfig contains configuration for the queue consumer.
type ConsumerConfig struct {
	// SubjectPrefix namespaces the request subjects, e.g. "posts.req".
	SubjectPrefix string

	// QueueGroup spreads requests across instances.
	QueueGroup string

	// HandleTimeout bounds one operation.
	HandleTimeout time.Duration
}

// Consumer is the queued entry adapter: it subscribes to the request
// subjects, translates messages into calls on the same post service the REST
// handlers use, and replies with the uniform envelope. The state-machine
// isolation guarantee therefore holds across both ingress paths.
type Consumer struct {
	bus     *nats.Conn
	service post.Service
	config  ConsumerConfig
	subs    []*nats.Subscription
}

// NewConsumer creates a new queue consumer.
func NewConsumer(bus *nats.Conn, service post.Service, config ConsumerConfig) *Consumer {
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = "posts.req"
	}
	if config.QueueGroup == "" {
		config.QueueGroup = "posts-workers"
	}
	if config.HandleTimeout <= 0 {
		config.HandleTimeout = 30 * time.Second
	}
	return &Consumer{
		bus:     bus,
		service: service,
		config:  config,
	}
}

// Start subscribes to all operation subjects.
func (c *Consumer) Start() error {
	ops := map[string]func(context.Context, Request) (interface{}, error){
		"create":   c.create,
		"read":     c.read,
		"search":   c.search,
		"join":     c.join,
		"leave":    c.leave,
		"transfer": c.transfer,
		"update":   c.update,
		"delete":   c.delete,
	}

	for op, handle := range ops {
		handle := handle
		subject := c.config.SubjectPrefix + "." + op
		sub, err := c.bus.QueueSubscribe(subject, c.config.QueueGroup, func(msg *nats.Msg) {
			c.handle(msg, handle)
		})
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", subject, err)
		}
		c.subs = append(c.subs, sub)
	}
	return nil
}

// Stop drops the subscriptions.
func (c *Consumer) Stop() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.subs = nil
}

func (c *Consumer) handle(msg *nats.Msg, handle func(context.Context, Request) (interface{}, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.HandleTimeout)
	defer cancel()

	var req Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		c.reply(msg, RenderFailure(req.CorrelationID, fault.Validation("malformed request: %v", err)))
		return
	}

	data, err := handle(ctx, req)
	if err != nil {
		if fault.HTTPStatus(err) >= 500 {
			log.Printf("queue %s: actor=%s post=%s: %v", msg.Subject, req.ActorID, req.PostID, err)
		}
		c.reply(msg, RenderFailure(req.CorrelationID, err))
		return
	}
	c.reply(msg, RenderSuccess(req.CorrelationID, data))
}

func (c *Consumer) reply(msg *nats.Msg, resp Response) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		log.Printf("queue: marshaling reply: %v", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		log.Printf("queue: responding on %s: %v", msg.Subject, err)
	}
}

// RenderSuccess builds the success envelope for an operation result.
func RenderSuccess(correlationID string, data interface{}) Response {
	resp := Response{
		Success:       true,
		StatusCode:    http.StatusOK,
		CorrelationID: correlationID,
	}
	if data == nil {
		resp.StatusCode = http.StatusNoContent
		return resp
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return RenderFailure(correlationID, fault.Internal(err, "marshaling response"))
	}
	resp.Data = raw
	return resp
}

// RenderFailure maps a service error onto the shared status taxonomy.
func RenderFailure(correlationID string, err error) Response {
	message := fault.PublicMessage(err)
	if reason := fault.ReasonOf(err); reason != "" {
		message = fmt.Sprintf("%s: %s", reason, message)
	}
	return Response{
		Success:       false,
		StatusCode:    fault.HTTPStatus(err),
		Message:       message,
		CorrelationID: correlationID,
	}
}

func (c *Consumer) create(ctx context.Context, req Request) (interface{}, error) {
	if req.ActorID == "" {
		return nil, fault.Validation("actor_id is required")
	}
	if req.Title == nil || *req.Title == "" {
		return nil, fault.Validation("title is required")
	}
	if req.MaxPeople == nil || *req.MaxPeople < 1 {
		return nil, fault.Validation("max_people must be at least 1")
	}

	in := post.CreateInput{
		Title:     *req.Title,
		MaxPeople: *req.MaxPeople,
		CreatedAt: time.Now(),
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Price != nil {
		in.Price = *req.Price
	}
	if req.Latitude != nil {
		in.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		in.Longitude = *req.Longitude
	}
	return c.service.Create(ctx, req.ActorID, in)
}

func (c *Consumer) read(ctx context.Context, req Request) (interface{}, error) {
	if req.PostID == "" {
		return nil, fault.Validation("post_id is required")
	}
	return c.service.Get(ctx, req.PostID)
}

func (c *Consumer) search(ctx context.Context, req Request) (interface{}, error) {
	filter := post.Filter{
		Text:          req.Text,
		CreatedAfter:  req.CreatedAfter,
		CreatedBefore: req.CreatedBefore,
		HasMemberID:   req.HasMemberID,
		MaxPeopleMax:  req.MaxPeopleMax,
		OnlyAvailable: req.OnlyAvailable,
		Limit:         req.Limit,
		Offset:        req.Offset,
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return c.service.Search(ctx, filter)
}

func (c *Consumer) join(ctx context.Context, req Request) (interface{}, error) {
	if err := requireActorAndPost(req); err != nil {
		return nil, err
	}
	return c.service.Join(ctx, req.PostID, req.ActorID)
}

func (c *Consumer) leave(ctx context.Context, req Request) (interface{}, error) {
	if err := requireActorAndPost(req); err != nil {
		return nil, err
	}
	p, err := c.service.Leave(ctx, req.PostID, req.ActorID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		// Creator left an empty post; nothing remains.
		return nil, nil
	}
	return p, nil
}

func (c *Consumer) transfer(ctx context.Context, req Request) (interface{}, error) {
	if err := requireActorAndPost(req); err != nil {
		return nil, err
	}
	if req.TargetUserID == "" {
		return nil, fault.Validation("target_user_id is required")
	}
	return c.service.TransferOwnership(ctx, req.PostID, req.ActorID, req.TargetUserID)
}

func (c *Consumer) update(ctx context.Context, req Request) (interface{}, error) {
	if err := requireActorAndPost(req); err != nil {
		return nil, err
	}
	return c.service.Update(ctx, req.PostID, req.ActorID, post.Update{
		Title:           req.Title,
		Description:     req.Description,
		Price:           req.Price,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		MaxPeople:       req.MaxPeople,
		MembersToRemove: req.RemoveMemberIDs,
	})
}

func (c *Consumer) delete(ctx context.Context, req Request) (interface{}, error) {
	if err := requireActorAndPost(req); err != nil {
		return nil, err
	}
	if err := c.service.Delete(ctx, req.PostID, req.ActorID); err != nil {
		return nil, err
	}
	return nil, nil
}

func requireActorAndPost(req Request) error {
	if req.ActorID == "" {
		return fault.Validation("actor_id is required")
	}
	if req.PostID == "" {
		return fault.Validation("post_id is required")
	}
	return nil
}
