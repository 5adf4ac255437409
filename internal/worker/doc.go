// Package worker выполняет workflow по запросам из очереди.
//
// # Обзор
//
// Worker — stateless компонент системы Alloy. Он потребляет сообщения
// execution.requested из очереди executions.requested, запускает
// Orchestrator.Execute и публикует итог в execution.finished.
//
// Workers масштабируются горизонтально — несколько экземпляров
// потребляют из одной очереди. Состояние выполнения хранится в БД,
// поэтому повторная доставка того же сообщения продолжает выполнение
// с места остановки, а не начинает его заново.
//
//	w := worker.New(worker.Config{
//	    Executor:  orch,
//	    Publisher: publisher,
//	    Conn:      mqConn,
//	    Logger:    logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Ack / Nack
//
//   - выполнение завершено или упало терминально → ack, FAILED/COMPLETED в finished
//   - ошибка инфраструктуры (БД, брокер) → nack с requeue
//   - сообщение не разбирается mq.DecodeExecutionRequest → nack без requeue (в DLQ)
package worker
