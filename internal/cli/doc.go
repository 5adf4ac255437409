// Package cli реализует инструмент командной строки Alloy.
//
// # Обзор
//
// CLI работает в двух режимах:
//   - локально: run и validate читают файл определения и выполняют
//     workflow в процессе (in-memory хранилища, встроенные handlers)
//   - через HTTP API: workflow, execute, execution
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Alloy API. Инкапсулирует HTTP-запросы,
// парсинг ответов (data / error) и ошибки API (*APIError).
//
//	client := cli.NewClient("http://localhost:8080")
//	wf, err := client.GetWorkflow("nightly-report")
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) и журнал
// log-действий — в stderr. Это позволяет использовать pipe:
// alloy run flow.yaml --json | jq .
//
// ## Commands
//
// Каждая команда создаётся фабричной функцией (NewRunCmd, NewWorkflowCmd и т.д.),
// принимающей clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
