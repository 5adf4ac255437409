// Package scheduler запускает workflow с триггером time.
//
// Scheduler периодически загружает workflow с cron-расписанием,
// вычисляет время следующего срабатывания и, когда оно наступает,
// публикует execution.requested. Execution id выводится из пары
// (workflow id, время срабатывания), поэтому дубликат тика
// продолжает то же выполнение.
//
// Структура:
//   - scheduler.go — цикл Run, Tick, публикация срабатываний
//   - cron.go      — вычисление следующего времени и execution id
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Workflows: workflowRepo,
//	    Publisher: publisher,
//	    Leader:    repo.NewAdvisoryLock(pool, repo.SchedulerLockKey),
//	    Logger:    logger,
//	})
//
//	go sched.Run(ctx)
//
// Leader Election:
//
// Scheduler работает только в экземпляре, удерживающем
// pg_try_advisory_lock (см. repo.AdvisoryLock).
package scheduler
