// Copyright 2025-2026 The evently Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import "github.com/spf13/viper"

// ===============================================================================
// HTTP Related Config

// HTTPServerConfig defines the HTTP server parameters
type HTTPServerConfig struct {
	// ListenOn is the interface the HTTP server will listen on
	ListenOn string `mapstructure:"listen_on" json:"listen_on" validate:"required,ip"`
	// Port is the port the HTTP server will listen on
	Port uint16 `mapstructure:"listen_port" json:"listen_port" validate:"required,gt=0,lt=65536"`
	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body in seconds. A zero or negative
	// value means there will be no timeout.
	ReadTimeout int `mapstructure:"read_timeout_sec" json:"read_timeout_sec" validate:"gte=0"`
	// WriteTimeout is the maximum duration before timing out
	// writes of the response in seconds. A zero or negative value
	// means there will be no timeout.
	WriteTimeout int `mapstructure:"write_timeout_sec" json:"write_timeout_sec" validate:"gte=0"`
	// IdleTimeout is the maximum amount of time to wait for the
	// next request when keep-alives are enabled in seconds. If
	// IdleTimeout is zero, the value of ReadTimeout is used. If
	// both are zero, there is no timeout.
	IdleTimeout int `mapstructure:"idle_timeout_sec" json:"idle_timeout_sec" validate:"gte=0"`
}

// HTTPRequestLogging defines HTTP request logging parameters
type HTTPRequestLogging struct {
	// RequestIDHeader is the HTTP header containing the API request ID
	RequestIDHeader string `mapstructure:"request_id_header" json:"request_id_header"`
	// DoNotLogHeaders is the list of headers to not include in logging metadata
	DoNotLogHeaders []string `mapstructure:"do_not_log_headers" json:"do_not_log_headers"`
}

// HTTPConfig defines HTTP API / server parameters
type HTTPConfig struct {
	// Server defines HTTP server parameters
	Server HTTPServerConfig `mapstructure:"server_config" json:"server_config" validate:"required,dive"`
	// Logging defines operation logging parameters
	Logging HTTPRequestLogging `mapstructure:"logging_config" json:"logging_config" validate:"required,dive"`
}

// ===============================================================================
// Real-time Broadcast Related Config

// RealtimeConfig defines parameters for the server-side broadcast layer
type RealtimeConfig struct {
	// HeartbeatInterval is the duration between connection liveness probes in seconds.
	// A connection which has not acknowledged a probe by the following probe is reaped.
	HeartbeatInterval int `mapstructure:"heartbeat_interval_sec" json:"heartbeat_interval_sec" validate:"gte=1"`
	// WriteTimeout is the max duration for pushing one frame to a connection in seconds
	WriteTimeout int `mapstructure:"write_timeout_sec" json:"write_timeout_sec" validate:"gte=1"`
}

// ===============================================================================
// Client Related Config

// ClientReconnectConfig defines client reconnect backoff parameters
type ClientReconnectConfig struct {
	// MaxAttempts sets the max number of reconnect attempts before giving up
	MaxAttempts int `mapstructure:"max_attempts" json:"max_attempts" validate:"gte=1"`
	// BaseDelay is the delay before the first reconnect attempt in milliseconds.
	// Each following attempt doubles the delay.
	BaseDelay int `mapstructure:"base_delay_ms" json:"base_delay_ms" validate:"gte=1"`
	// MaxDelay caps the delay between reconnect attempts in milliseconds
	MaxDelay int `mapstructure:"max_delay_ms" json:"max_delay_ms" validate:"gte=1"`
}

// ClientConfig defines parameters for the client-side connection manager
type ClientConfig struct {
	// EndpointURL is the base URL of the REST API the sync endpoint accompanies.
	// The websocket scheme mirrors this URL's scheme (http -> ws, https -> wss).
	EndpointURL string `mapstructure:"endpoint_url" json:"endpoint_url" validate:"required,url"`
	// HeartbeatInterval is the duration between client liveness probes in seconds
	HeartbeatInterval int `mapstructure:"heartbeat_interval_sec" json:"heartbeat_interval_sec" validate:"gte=1"`
	// Reconnect defines reconnect backoff parameters
	Reconnect ClientReconnectConfig `mapstructure:"reconnect" json:"reconnect" validate:"required,dive"`
}

// ===============================================================================
// Complete Config

// SystemConfig defines the complete system config
type SystemConfig struct {
	// API are the REST / websocket API server configs
	API HTTPConfig `mapstructure:"api" json:"api" validate:"required,dive"`
	// Realtime are the server-side broadcast layer configs
	Realtime RealtimeConfig `mapstructure:"realtime" json:"realtime" validate:"required,dive"`
	// Client are the client connection manager configs
	Client ClientConfig `mapstructure:"client" json:"client" validate:"required,dive"`
}

// ===============================================================================

// InstallDefaultConfigValues installs default config parameters in viper
func InstallDefaultConfigValues() {
	// Default API server settings
	viper.SetDefault("api.server_config.listen_on", "0.0.0.0")
	viper.SetDefault("api.server_config.listen_port", 3000)
	viper.SetDefault("api.server_config.read_timeout_sec", 60)
	viper.SetDefault("api.server_config.write_timeout_sec", 60)
	viper.SetDefault("api.server_config.idle_timeout_sec", 600)
	viper.SetDefault("api.logging_config.request_id_header", "Evently-Request-ID")
	viper.SetDefault(
		"api.logging_config.do_not_log_headers", []string{
			"WWW-Authenticate", "Authorization", "Proxy-Authenticate", "Proxy-Authorization",
		},
	)

	// Default broadcast layer settings
	viper.SetDefault("realtime.heartbeat_interval_sec", 30)
	viper.SetDefault("realtime.write_timeout_sec", 5)

	// Default client settings
	viper.SetDefault("client.endpoint_url", "http://127.0.0.1:3000")
	viper.SetDefault("client.heartbeat_interval_sec", 30)
	viper.SetDefault("client.reconnect.max_attempts", 5)
	viper.SetDefault("client.reconnect.base_delay_ms", 2000)
	viper.SetDefault("client.reconnect.max_delay_ms", 10000)
}
