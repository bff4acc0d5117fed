package router

import (
	"fmt"
	"net/http"
)

func registerSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})

	mux.HandleFunc("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, swaggerHTML, "/swagger/openapi.json")
	})

	mux.HandleFunc("/swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(openAPI))
	})
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Coin Ledger API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "%s",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>`

const openAPI = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Coin Ledger API",
    "version": "1.0.0"
  },
  "paths": {
    "/api/signup": {
      "post": {
        "summary": "Register an account",
        "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/SignupRequest"}}}},
        "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failed"}}
      }
    },
    "/api/accounts": {
      "get": {
        "summary": "Get account by uid",
        "parameters": [{"name": "uid", "in": "query", "required": true, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "OK"}, "404": {"description": "User not found"}}
      }
    },
    "/api/accounts/verify": {
      "post": {
        "summary": "Mark an account verified",
        "security": [{"BasicAuth": []}],
        "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/VerifyAccountRequest"}}}},
        "responses": {"200": {"description": "OK"}, "404": {"description": "User not found"}}
      }
    },
    "/api/transfer": {
      "post": {
        "summary": "Transfer coins",
        "security": [{"BasicAuth": []}],
        "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/TransferRequest"}}}},
        "responses": {
          "200": {"description": "Transfer committed"},
          "400": {"description": "Validation failed, same account or insufficient balance"},
          "403": {"description": "Account not verified or daily limit reached"},
          "404": {"description": "Sender not found"},
          "503": {"description": "Ledger unavailable"}
        }
      }
    },
    "/api/mining/coin": {
      "post": {
        "summary": "Claim the mining reward",
        "security": [{"BasicAuth": []}],
        "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/MineRequest"}}}},
        "responses": {"200": {"description": "Reward credited"}, "404": {"description": "Account not found"}, "429": {"description": "Cooldown active"}}
      }
    },
    "/api/stake/coin": {
      "post": {
        "summary": "Open a stake",
        "security": [{"BasicAuth": []}],
        "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/StakeRequest"}}}},
        "responses": {"201": {"description": "Stake opened"}, "400": {"description": "Validation failed or insufficient balance"}}
      }
    },
    "/api/transactions": {
      "get": {
        "summary": "Get a transaction by hash or the history of an address",
        "parameters": [
          {"name": "hash", "in": "query", "schema": {"type": "string"}},
          {"name": "address", "in": "query", "schema": {"type": "string"}}
        ],
        "responses": {"200": {"description": "OK"}, "404": {"description": "Transaction not found"}}
      }
    },
    "/api/leaderboard": {
      "get": {
        "summary": "Top senders by transferred amount",
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/ws/ledger": {
      "get": {
        "summary": "Websocket feed of committed ledger entries",
        "parameters": [{"name": "after", "in": "query", "schema": {"type": "integer"}}],
        "responses": {"101": {"description": "Switching protocols"}}
      }
    },
    "/health": {
      "get": {"summary": "Liveness check", "responses": {"200": {"description": "OK"}}}
    }
  },
  "components": {
    "securitySchemes": {
      "BasicAuth": {"type": "http", "scheme": "basic"}
    },
    "schemas": {
      "SignupRequest": {
        "type": "object",
        "required": ["username", "email", "password"],
        "properties": {"username": {"type": "string"}, "email": {"type": "string"}, "password": {"type": "string", "minLength": 6}}
      },
      "VerifyAccountRequest": {
        "type": "object",
        "required": ["uid"],
        "properties": {"uid": {"type": "integer"}}
      },
      "TransferRequest": {
        "type": "object",
        "required": ["fromAddress", "toAddress", "amount"],
        "properties": {
          "fromAddress": {"type": "string"},
          "toAddress": {"type": "string", "description": "Recipient address or numeric uid"},
          "amount": {"type": "string", "example": "10"}
        }
      },
      "MineRequest": {
        "type": "object",
        "required": ["userId"],
        "properties": {"userId": {"type": "integer"}, "ipaddress": {"type": "string"}}
      },
      "StakeRequest": {
        "type": "object",
        "required": ["uid", "amount", "months", "interestRate"],
        "properties": {
          "uid": {"type": "integer"},
          "amount": {"type": "string"},
          "months": {"type": "integer"},
          "interestRate": {"type": "string", "description": "Daily interest rate in percent"}
        }
      }
    }
  }
}`

