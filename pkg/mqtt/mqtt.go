// Package mqtt provides MQTT communication capabilities for the bot.
// It supports publish/subscribe patterns with request/response functionality.
package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/PancyStudios/HelperBot/pkg/metrics"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrNotConnected is returned when publishing without a broker connection
var ErrNotConnected = errors.New("mqtt client not connected")

// MqttRequest represents an MQTT request message
type MqttRequest struct {
	CorrelationID string          `json:"correlationId"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// MqttResponse represents an MQTT response message
type MqttResponse struct {
	CorrelationID string          `json:"correlationId"`
	Data          json.RawMessage `json:"data"`
	Error         string          `json:"error,omitempty"`
}

// MqttEvent is published on <prefix>/events/<name> for bot side notifications
type MqttEvent struct {
	Name string      `json:"name"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data"`
}

// Options configures the broker connection
type Options struct {
	Host        string
	Port        string
	Username    string
	Password    string
	ClientID    string
	TopicPrefix string
}

// MqttCommunicator handles MQTT communication
type MqttCommunicator struct {
	client           mqtt.Client
	prefix           string
	clientID         string
	metrics          *metrics.Metrics
	responseHandlers map[string]func(MqttResponse)
	routes           map[string]mqtt.MessageHandler
	mu               sync.RWMutex
}

var (
	communicator *MqttCommunicator
	once         sync.Once
)

// Init initializes the global MQTT communicator
func Init(opts Options) *MqttCommunicator {
	once.Do(func() {
		communicator = NewMqttCommunicator(opts)
	})
	return communicator
}

// Get returns the global MQTT communicator
func Get() *MqttCommunicator {
	return communicator
}

// NewMqttCommunicator creates a new MQTT communicator and starts connecting.
// The client keeps retrying in the background when the broker is down.
func NewMqttCommunicator(opts Options) *MqttCommunicator {
	mc := newCommunicator(nil, opts.TopicPrefix, opts.ClientID)

	uniqueID := fmt.Sprintf("%s_%s", opts.ClientID, uuid.New().String())

	clientOpts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", opts.Host, opts.Port)).
		SetClientID(uniqueID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", opts.ClientID), "MQTT")
			mc.resubscribe()
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	mc.client = mqtt.NewClient(clientOpts)

	token := mc.client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", token.Error()), "MQTT")
	}

	return mc
}

func newCommunicator(client mqtt.Client, prefix, clientID string) *MqttCommunicator {
	if prefix == "" {
		prefix = "helperbot"
	}
	return &MqttCommunicator{
		client:           client,
		prefix:           strings.TrimSuffix(prefix, "/"),
		clientID:         clientID,
		responseHandlers: make(map[string]func(MqttResponse)),
		routes:           make(map[string]mqtt.MessageHandler),
	}
}

// SetMetrics enables request counters
func (mc *MqttCommunicator) SetMetrics(m *metrics.Metrics) {
	mc.metrics = m
}

// Destroy closes the MQTT connection
func (mc *MqttCommunicator) Destroy() {
	if mc.client != nil && mc.client.IsConnected() {
		mc.client.Disconnect(250)
		logger.System("Conexión MQTT cerrada exitosamente.", "MQTT")
	} else {
		logger.Warn("El cliente MQTT no estaba conectado, no se necesita cerrar.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (mc *MqttCommunicator) IsConnected() bool {
	return mc != nil && mc.client != nil && mc.client.IsConnected()
}

func (mc *MqttCommunicator) requestTopic(topic string) string {
	return mc.prefix + "/request/" + topic
}

func (mc *MqttCommunicator) responseTopic(topic, correlationID string) string {
	return mc.prefix + "/response/" + topic + "/" + correlationID
}

// EventTopic returns the topic an event is published on
func (mc *MqttCommunicator) EventTopic(name string) string {
	return mc.prefix + "/events/" + name
}

// Publish sends a JSON message to a topic
func (mc *MqttCommunicator) Publish(topic string, payload interface{}) error {
	if !mc.IsConnected() {
		return ErrNotConnected
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := mc.client.Publish(topic, 0, false, jsonData)
	token.Wait()
	return token.Error()
}

// PublishEvent publishes a bot event without waiting for anyone to consume it
func (mc *MqttCommunicator) PublishEvent(name string, data interface{}) error {
	return mc.Publish(mc.EventTopic(name), MqttEvent{Name: name, At: time.Now().UTC(), Data: data})
}

// Request sends a request and waits for a response, decoding its data into out
func (mc *MqttCommunicator) Request(topic string, payload interface{}, timeout time.Duration, out interface{}) error {
	if !mc.IsConnected() {
		return ErrNotConnected
	}

	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	correlationID := uuid.New().String()
	responseTopic := mc.responseTopic(topic, correlationID)

	responseChan := make(chan MqttResponse, 1)
	errChan := make(chan error, 1)

	mc.mu.Lock()
	mc.responseHandlers[correlationID] = func(response MqttResponse) {
		select {
		case responseChan <- response:
		default:
		}
	}
	mc.mu.Unlock()

	defer func() {
		mc.mu.Lock()
		delete(mc.responseHandlers, correlationID)
		mc.mu.Unlock()
		mc.client.Unsubscribe(responseTopic)
	}()

	token := mc.client.Subscribe(responseTopic, 0, func(c mqtt.Client, msg mqtt.Message) {
		var response MqttResponse
		if err := json.Unmarshal(msg.Payload(), &response); err != nil {
			select {
			case errChan <- err:
			default:
			}
			return
		}

		mc.mu.RLock()
		handler, exists := mc.responseHandlers[response.CorrelationID]
		mc.mu.RUnlock()

		if exists {
			handler(response)
		}
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}

	request := MqttRequest{CorrelationID: correlationID, Payload: rawPayload}
	if err := mc.Publish(mc.requestTopic(topic), request); err != nil {
		return err
	}

	select {
	case response := <-responseChan:
		if response.Error != "" {
			return errors.New(response.Error)
		}
		if out == nil || len(response.Data) == 0 {
			return nil
		}
		return json.Unmarshal(response.Data, out)
	case err := <-errChan:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("la petición a '%s' ha expirado (timeout)", topic)
	}
}

// Request carries an incoming request to a RequestHandler
type Request struct {
	// Topic is the request topic without the "<prefix>/request/" part
	Topic   string
	Payload json.RawMessage
}

// Bind decodes the request payload into v. An empty payload leaves v untouched.
func (r Request) Bind(v interface{}) error {
	if len(r.Payload) == 0 || string(r.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(r.Payload, v)
}

// RequestHandler is a function type for handling MQTT requests
type RequestHandler func(req Request) (interface{}, error)

// On registers a handler for a request topic. '+' and '#' wildcards are allowed.
func (mc *MqttCommunicator) On(requestTopic string, callback RequestHandler) error {
	topic := mc.requestTopic(requestTopic)
	requestPrefix := mc.requestTopic("")

	handler := func(c mqtt.Client, msg mqtt.Message) {
		var request MqttRequest
		if err := json.Unmarshal(msg.Payload(), &request); err != nil {
			logger.Error(fmt.Sprintf("Error parsing MQTT request: %v", err), "MQTT")
			return
		}

		actualTopic := strings.TrimPrefix(msg.Topic(), requestPrefix)
		response := mc.serve(callback, Request{Topic: actualTopic, Payload: request.Payload})
		response.CorrelationID = request.CorrelationID

		if err := mc.Publish(mc.responseTopic(actualTopic, request.CorrelationID), response); err != nil {
			logger.Error(fmt.Sprintf("Error respondiendo a %s: %v", actualTopic, err), "MQTT")
		}
	}

	mc.mu.Lock()
	mc.routes[topic] = handler
	mc.mu.Unlock()

	if mc.client == nil {
		return ErrNotConnected
	}
	token := mc.client.Subscribe(topic, 0, handler)
	if token.Wait() && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error subscribing to topic %s: %v", topic, token.Error()), "MQTT")
		return token.Error()
	}
	return nil
}

// serve runs a request handler, turning errors and panics into an error response
func (mc *MqttCommunicator) serve(callback RequestHandler, req Request) (response MqttResponse) {
	outcome := metrics.OutcomeOK
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("Panic atendiendo %s: %v", req.Topic, r), "MQTT")
			response = MqttResponse{Error: "internal error"}
			outcome = metrics.OutcomePanic
		}
		mc.metrics.ObserveMQTTRequest(req.Topic, outcome)
	}()

	data, err := callback(req)
	if err != nil {
		outcome = metrics.OutcomeError
		return MqttResponse{Error: err.Error()}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		outcome = metrics.OutcomeError
		return MqttResponse{Error: fmt.Sprintf("failed to marshal response: %v", err)}
	}
	return MqttResponse{Data: raw}
}

// resubscribe restores request routes after a reconnect
func (mc *MqttCommunicator) resubscribe() {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	for topic, handler := range mc.routes {
		token := mc.client.Subscribe(topic, 0, handler)
		if token.Wait() && token.Error() != nil {
			logger.Error(fmt.Sprintf("Error resubscribing to topic %s: %v", topic, token.Error()), "MQTT")
		}
	}
}

// Subscribe subscribes to a topic with a message handler
func (mc *MqttCommunicator) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := mc.client.Subscribe(topic, 0, func(c mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	return token.Error()
}

// Unsubscribe unsubscribes from a topic
func (mc *MqttCommunicator) Unsubscribe(topic string) error {
	mc.mu.Lock()
	delete(mc.routes, topic)
	mc.mu.Unlock()

	token := mc.client.Unsubscribe(topic)
	token.Wait()
	return token.Error()
}

// topicMatch checks if a received topic matches a pattern (with wildcards)
// '+' matches exactly one topic level
// '#' matches zero or more topic levels and must be the last character
func topicMatch(pattern, topic string) bool {
	patternParts := strings.Split(pattern, "/")
	topicParts := strings.Split(topic, "/")

	patternLen := len(patternParts)
	topicLen := len(topicParts)

	for i := 0; i < patternLen; i++ {
		if patternParts[i] == "#" {
			return true
		}

		if i >= topicLen {
			return false
		}

		if patternParts[i] == "+" {
			continue
		}

		if patternParts[i] != topicParts[i] {
			return false
		}
	}

	return patternLen == topicLen
}
