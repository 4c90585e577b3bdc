package gemini

import (
	"google.golang.org/genai"

	"github.com/taskforge/taskforge-api/internal/assistant"
)

// systemInstruction frames the model as a task-management assistant and pins
// the argument conventions the toolbox expects.
const systemInstruction = `You are a task management assistant. You manage the user's to-do list
through the provided tools. Dates are always formatted as YYYY-MM-DD.
Task statuses are: todo, in_progress, done, cancelled.
Task priorities are: low, medium, high, urgent.
When the user refers to a task by name rather than ID, use title_match.
After acting, summarize what you did in one or two short sentences.`

// taskTools declares the function-calling surface offered to the model.
// Names and parameters mirror assistant.Toolbox exactly.
func taskTools() *genai.Tool {
	dateSchema := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc + " in YYYY-MM-DD format"}
	}
	statusSchema := &genai.Schema{
		Type: genai.TypeString,
		Enum: []string{"todo", "in_progress", "done", "cancelled"},
	}
	prioritySchema := &genai.Schema{
		Type: genai.TypeString,
		Enum: []string{"low", "medium", "high", "urgent"},
	}

	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        assistant.ToolCreateTask,
				Description: "Create a new task. Status always starts as todo.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":       {Type: genai.TypeString, Description: "Task title"},
						"description": {Type: genai.TypeString, Description: "Optional task description"},
						"due_date":    dateSchema("Optional due date"),
						"priority":    prioritySchema,
					},
					Required: []string{"title"},
				},
			},
			{
				Name:        assistant.ToolUpdateTask,
				Description: "Update an existing task, found by task_id or title_match.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"task_id":         {Type: genai.TypeInteger, Description: "ID of the task to update"},
						"title_match":     {Type: genai.TypeString, Description: "Substring of the task title to match"},
						"new_title":       {Type: genai.TypeString},
						"new_description": {Type: genai.TypeString},
						"new_status":      statusSchema,
						"new_due_date":    dateSchema("New due date"),
						"new_priority":    prioritySchema,
					},
				},
			},
			{
				Name:        assistant.ToolDeleteTask,
				Description: "Delete a task, found by task_id or title_match.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"task_id":     {Type: genai.TypeInteger, Description: "ID of the task to delete"},
						"title_match": {Type: genai.TypeString, Description: "Substring of the task title to match"},
					},
				},
			},
			{
				Name:        assistant.ToolListTasks,
				Description: "List all tasks, newest first.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: map[string]*genai.Schema{},
				},
			},
			{
				Name:        assistant.ToolFilterTasks,
				Description: "List tasks filtered by status, priority or due date bounds.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"status":          statusSchema,
						"priority":        prioritySchema,
						"due_date_before": dateSchema("Only tasks due on or before this date"),
						"due_date_after":  dateSchema("Only tasks due on or after this date"),
					},
				},
			},
		},
	}
}
