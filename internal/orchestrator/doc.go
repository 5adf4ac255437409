// Package orchestrator выполняет workflow узел за узлом.
//
// Orchestrator отвечает за:
//   - Загрузку workflow и состояния выполнения (или создание нового)
//   - Выбор handler'а по типу действия через реестр
//   - Retry с exponential backoff для упавших действий
//   - Сохранение ExecutionState после каждого перехода
//   - Запись одного audit log на итог каждого узла
//
// Выполнение последовательное: в каждый момент работает ровно одно действие,
// переход идёт только по первому successor. Перезапуск с теми же
// (workflowID, executionID) продолжает выполнение с сохранённого узла.
package orchestrator
