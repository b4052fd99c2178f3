package worker

import (
	"log"
	"time"

	"flowmarket/internal/pkg/mailer"
)

// EmailTask 待发送邮件任务
type EmailTask struct {
	To      string
	Subject string
	Body    string
	Retry   int // 重试次数
}

// EmailPool 异步邮件发送池，广播和交易邮件都走这里
type EmailPool struct {
	TaskQueue  chan EmailTask
	RetryQueue chan EmailTask // 重试队列
	Mailer     mailer.Mailer
	WorkerNum  int
	MaxRetry   int // 最大重试次数
}

func NewEmailPool(m mailer.Mailer, workerNum int, bufferSize int) *EmailPool {
	return &EmailPool{
		TaskQueue:  make(chan EmailTask, bufferSize),
		RetryQueue: make(chan EmailTask, bufferSize/2),
		Mailer:     m,
		WorkerNum:  workerNum,
		MaxRetry:   3,
	}
}

func (p *EmailPool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		go p.worker(i)
	}
	// 启动重试处理协程
	go p.retryWorker()
	log.Printf("Email pool started with %d workers", p.WorkerNum)
}

func (p *EmailPool) worker(id int) {
	for task := range p.TaskQueue {
		if err := p.Mailer.Send(task.To, task.Subject, task.Body); err != nil {
			log.Printf("[EmailWorker %d] Failed to send to %s: %v", id, task.To, err)

			// 如果未达到最大重试次数，加入重试队列
			if task.Retry < p.MaxRetry {
				task.Retry++
				select {
				case p.RetryQueue <- task:
					log.Printf("[EmailWorker %d] Task added to retry queue (attempt %d/%d)",
						id, task.Retry, p.MaxRetry)
				default:
					log.Printf("[EmailWorker %d] Retry queue full, task dropped (to=%s)", id, task.To)
					p.logFailedTask(task, err)
				}
			} else {
				log.Printf("[EmailWorker %d] Task exceeded max retries, dropped (to=%s)", id, task.To)
				p.logFailedTask(task, err)
			}
		}
	}
}

func (p *EmailPool) retryWorker() {
	for task := range p.RetryQueue {
		// 延迟重试，避免立即重试
		time.Sleep(time.Duration(task.Retry) * time.Second)

		select {
		case p.TaskQueue <- task:
			log.Printf("[RetryWorker] Email re-queued (attempt %d/%d)", task.Retry, p.MaxRetry)
		default:
			log.Printf("[RetryWorker] Main queue full, email dropped (to=%s)", task.To)
			p.logFailedTask(task, nil)
		}
	}
}

func (p *EmailPool) logFailedTask(task EmailTask, err error) {
	log.Printf("[DeadLetter] Email failed permanently: to=%s, subject=%q, error=%v",
		task.To, task.Subject, err)
}

// Enqueue 任务入队，队列满时丢弃并记录
func (p *EmailPool) Enqueue(task EmailTask) {
	select {
	case p.TaskQueue <- task:
	default:
		log.Printf("Email pool queue full, dropping task (to=%s)", task.To)
		p.logFailedTask(task, nil)
	}
}
