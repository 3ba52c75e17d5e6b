package httpapi

import "net/http"

// openAPIDoc is a hand-authored OpenAPI 2.0 document describing the
// routes annotated with swag comments across this package. It is
// served verbatim at /swagger/doc.json; no swag init code generation
// runs as part of building this repo.
const openAPIDoc = `{
  "swagger": "2.0",
  "info": {
    "title": "netspan API",
    "description": "Network topology discovery engine: scan lifecycle, device inventory, and topology tree.",
    "version": "1.0"
  },
  "basePath": "/",
  "consumes": ["application/json"],
  "produces": ["application/json"],
  "paths": {
    "/scan/{network}/start": {
      "post": {
        "tags": ["scan"],
        "summary": "Start a scan",
        "description": "Begins a topology discovery scan for the given network. Returns 409 if one is already running.",
        "parameters": [
          {"name": "network", "in": "path", "required": true, "type": "string", "description": "Network ID"}
        ],
        "responses": {
          "202": {"description": "scan started"},
          "404": {"description": "network not found"},
          "409": {"description": "scan already running"}
        }
      }
    },
    "/scan/{network}/stop": {
      "post": {
        "tags": ["scan"],
        "summary": "Stop a scan",
        "description": "Requests cancellation of the currently running scan for the network, if any.",
        "parameters": [
          {"name": "network", "in": "path", "required": true, "type": "string", "description": "Network ID"}
        ],
        "responses": {
          "202": {"description": "stop requested"}
        }
      }
    },
    "/scan/{network}/status": {
      "get": {
        "tags": ["scan"],
        "summary": "Get scan status",
        "description": "Returns the status and log/device counts for the network's most recent scan.",
        "parameters": [
          {"name": "network", "in": "path", "required": true, "type": "string", "description": "Network ID"}
        ],
        "responses": {
          "200": {"description": "scan status"},
          "404": {"description": "no scan found"}
        }
      }
    },
    "/scan/{network}/logs": {
      "get": {
        "tags": ["scan"],
        "summary": "Tail scan logs",
        "description": "Returns log lines emitted by the network's latest scan after the given offset.",
        "parameters": [
          {"name": "network", "in": "path", "required": true, "type": "string", "description": "Network ID"},
          {"name": "after", "in": "query", "required": false, "type": "integer", "default": 0, "description": "Return logs after this sequence number"}
        ],
        "responses": {
          "200": {"description": "log lines"},
          "404": {"description": "no scan found"}
        }
      }
    },
    "/scan/{network}/devices": {
      "get": {
        "tags": ["scan"],
        "summary": "List discovered devices",
        "description": "Returns devices discovered by the network's scan, in discovery order, after the given offset.",
        "parameters": [
          {"name": "network", "in": "path", "required": true, "type": "string", "description": "Network ID"},
          {"name": "after", "in": "query", "required": false, "type": "integer", "default": 0, "description": "Return devices after this index"}
        ],
        "responses": {
          "200": {"description": "devices"}
        }
      }
    },
    "/scan/{network}/topology": {
      "get": {
        "tags": ["scan"],
        "summary": "Get network topology",
        "description": "Assembles the discovered device/interface/lease topology tree for the network.",
        "parameters": [
          {"name": "network", "in": "path", "required": true, "type": "string", "description": "Network ID"}
        ],
        "responses": {
          "200": {"description": "topology tree"}
        }
      }
    },
    "/healthz": {
      "get": {
        "tags": ["operational"],
        "summary": "Liveness check",
        "responses": {"200": {"description": "alive"}}
      }
    },
    "/readyz": {
      "get": {
        "tags": ["operational"],
        "summary": "Readiness check",
        "responses": {"200": {"description": "ready"}, "503": {"description": "not ready"}}
      }
    }
  }
}
`

func handleOpenAPIDoc(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(openAPIDoc))
}
