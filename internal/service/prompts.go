package service

// Prompts for the requirement extractor and the action selector. Each step
// asks for a single JSON object so responses parse strictly.

const validateTaskSystem = `You are a validator for workflow task descriptions. Decide if the user's input describes a valid, actionable workflow task that could be implemented as an API agent (e.g. "get X from service A and send to service B", "fetch Y by Z", "update W").

Respond with a JSON object:
{"valid": <bool>, "reason": "<one short sentence explaining why>"}`

const validateTaskUser = `Validate this user input as a workflow task.

User input:
%s`

const extractServicesSystem = `You are an analyst that identifies external services or apps mentioned in a workflow task (e.g. Trello, Slack, GitHub, Gmail, Salesforce, Asana, Discord, Jira). These will be used for API integration.

List distinct service/app names mentioned in the task. Use standard names (e.g. "Trello", "Slack", "Google Sheets"). If none are clearly mentioned, return an empty list.

Respond with a JSON object:
{"services": ["<name>", ...]}`

const extractServicesUser = `From the following workflow task, list every external service or app that is mentioned or implied.

Workflow task:
%s`

const extractParametersSystem = `You are an API designer. Given a workflow task and the list of services involved, list ONLY the parameters that are explicitly required by the task, i.e. mentioned or clearly implied (e.g. "for a person" -> person identifier, "send to Slack" -> Slack recipient).

Do NOT add optional filters, format options, or any parameter not directly stated by the task.

For each parameter: name (snake_case), type (str, int, or bool), description, required (true), location (path, query, or body), and how_used (one sentence).

Respond with a JSON object:
{"parameters": [{"name": "...", "type": "str", "description": "...", "required": true, "location": "body", "how_used": "..."}]}`

const extractParametersUser = `Workflow task:
%s

Services involved: %s

List ONLY the parameters that are explicitly required by this task.`

const selectActionsSystem = `You pick third-party integration actions for a workflow task. Given the task and a catalog of available actions, choose the smallest set of actions the task needs. Only choose actions from the catalog; never invent identifiers.

Respond with a JSON object:
{"action_ids": ["<id from the catalog>", ...]}`

const selectActionsUser = `Workflow task:
%s

Available actions:
%s

Choose the action ids this task needs.`
